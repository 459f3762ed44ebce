// Package library reads the play library document from disk.
package library

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// File loads a library document from a .yaml/.yml or .toml file.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads and decodes the file. The format follows the extension.
func (f *File) Load(_ context.Context) (domain.LibraryDocument, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return domain.LibraryDocument{}, fmt.Errorf("library.Load: read %q: %w", f.path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(f.path)); ext {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".toml":
		return DecodeTOML(data)
	default:
		return domain.LibraryDocument{}, fmt.Errorf("library.Load: unsupported extension %q", ext)
	}
}

// DecodeYAML parses a YAML library document. Unknown keys are rejected so a
// misspelled field does not silently fall back to its default.
func DecodeYAML(data []byte) (domain.LibraryDocument, error) {
	var doc domain.LibraryDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return domain.LibraryDocument{}, fmt.Errorf("library.DecodeYAML: %w", err)
	}
	return stamp(doc), nil
}

// DecodeTOML parses a TOML library document.
func DecodeTOML(data []byte) (domain.LibraryDocument, error) {
	var doc domain.LibraryDocument
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return domain.LibraryDocument{}, fmt.Errorf("library.DecodeTOML: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, 0, len(undec))
		for _, k := range undec {
			// params is free-form
			if strings.Contains(k.String(), ".params.") {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return domain.LibraryDocument{}, fmt.Errorf("library.DecodeTOML: unknown keys %s", strings.Join(keys, ", "))
		}
	}
	return stamp(doc), nil
}

// stamp copies the map position of every record into its Category and
// Condition fields.
func stamp(doc domain.LibraryDocument) domain.LibraryDocument {
	for cat, byCond := range doc.Plays {
		for cond, records := range byCond {
			for i := range records {
				records[i].Category = cat
				records[i].Condition = cond
			}
		}
	}
	return doc
}

var _ ports.LibraryStore = (*File)(nil)
