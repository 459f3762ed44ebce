package ports

import "context"

// ConditionReader classifies market conditions ("weather") per category.
type ConditionReader interface {
	// All returns category to current condition label.
	All(ctx context.Context) (map[string]string, error)

	// One returns the current condition of a single category.
	One(ctx context.Context, category string) (string, error)
}
