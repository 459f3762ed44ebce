// Package orchestrator drives a whole run: it ticks the clock, reads market
// conditions and swaps the active CategoryHandler of each category.
package orchestrator

import (
	"fmt"
	"slices"
	"sort"

	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/domain"
)

// Library is the resolved play library: every record has been turned into a
// runnable *play.Config, so name errors surface at load time.
type Library struct {
	doc        domain.LibraryDocument
	categories []string
	conditions []string
	configs    map[string]map[string][]*play.Config
}

// NewLibrary validates doc and resolves its play records against reg.
func NewLibrary(doc domain.LibraryDocument, reg *play.Registry) (*Library, error) {
	l := &Library{
		doc:        doc,
		conditions: append([]string(nil), doc.Conditions...),
		configs:    make(map[string]map[string][]*play.Config),
	}
	for cat, symbols := range doc.Categories {
		if len(symbols) == 0 {
			return nil, fmt.Errorf("orchestrator.NewLibrary: category %q: %w", cat, domain.ErrNoSymbols)
		}
		l.categories = append(l.categories, cat)
	}
	sort.Strings(l.categories)

	for cat, byCond := range doc.Plays {
		if _, ok := doc.Categories[cat]; !ok {
			return nil, fmt.Errorf("orchestrator.NewLibrary: plays for %q: %w", cat, domain.ErrUnknownCategory)
		}
		l.configs[cat] = make(map[string][]*play.Config)
		for cond, records := range byCond {
			if !slices.Contains(l.conditions, cond) {
				return nil, fmt.Errorf("orchestrator.NewLibrary: plays for %s/%s: %w", cat, cond, domain.ErrUnknownCondition)
			}
			for _, pc := range records {
				pc.Category, pc.Condition = cat, cond
				cfg, err := reg.Resolve(pc)
				if err != nil {
					return nil, fmt.Errorf("orchestrator.NewLibrary: %w", err)
				}
				l.configs[cat][cond] = append(l.configs[cat][cond], cfg)
			}
		}
	}
	return l, nil
}

// Categories returns the category names, sorted.
func (l *Library) Categories() []string { return append([]string(nil), l.categories...) }

// Conditions returns the known condition labels in file order.
func (l *Library) Conditions() []string { return append([]string(nil), l.conditions...) }

// Symbols returns the symbols of category.
func (l *Library) Symbols(category string) ([]string, error) {
	s, ok := l.doc.Categories[category]
	if !ok {
		return nil, fmt.Errorf("orchestrator.Library.Symbols: %q: %w", category, domain.ErrUnknownCategory)
	}
	return append([]string(nil), s...), nil
}

// UniqueSymbols returns every symbol referenced by any category, sorted.
func (l *Library) UniqueSymbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, cat := range l.categories {
		for _, s := range l.doc.Categories[cat] {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Configs returns the play configs of one (category, condition) cell. A
// known pair without records yields an empty slice.
func (l *Library) Configs(category, condition string) ([]*play.Config, error) {
	if _, ok := l.doc.Categories[category]; !ok {
		return nil, fmt.Errorf("orchestrator.Library.Configs: %q: %w", category, domain.ErrUnknownCategory)
	}
	if !slices.Contains(l.conditions, condition) {
		return nil, fmt.Errorf("orchestrator.Library.Configs: %q: %w", condition, domain.ErrUnknownCondition)
	}
	return append([]*play.Config(nil), l.configs[category][condition]...), nil
}

// Instrument returns the alignment rules of symbol.
func (l *Library) Instrument(symbol string) domain.Instrument {
	return l.doc.Instrument(symbol)
}
