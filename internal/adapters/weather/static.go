// Package weather provides market condition readers.
package weather

import (
	"context"
	"fmt"
	"maps"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Static always reports the same conditions.
type Static struct {
	conditions map[string]string
}

func NewStatic(conditions map[string]string) *Static {
	return &Static{conditions: maps.Clone(conditions)}
}

func (s *Static) All(_ context.Context) (map[string]string, error) {
	return maps.Clone(s.conditions), nil
}

func (s *Static) One(_ context.Context, category string) (string, error) {
	c, ok := s.conditions[category]
	if !ok {
		return "", fmt.Errorf("weather.Static: %s: %w", category, domain.ErrUnknownCategory)
	}
	return c, nil
}

var _ ports.ConditionReader = (*Static)(nil)
