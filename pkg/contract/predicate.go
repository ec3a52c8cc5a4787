package contract

import (
	"context"
)

// Predicate is a boolean test over one value, supplied by the host.
// Test returns an error when the predicate itself fails (as opposed to
// answering false); the checker reports that as a PredicateFailure.
type Predicate interface {
	Name() string
	Test(ctx context.Context, v any) (bool, error)
}

// PredicateFunc adapts a total Go function into a Predicate.
type PredicateFunc struct {
	name string
	fn   func(v any) bool
}

// NewPredicate returns a Predicate that never fails.
func NewPredicate(name string, fn func(v any) bool) *PredicateFunc {
	return &PredicateFunc{name: name, fn: fn}
}

func (p *PredicateFunc) Name() string { return p.name }

func (p *PredicateFunc) Test(_ context.Context, v any) (bool, error) {
	return p.fn(v), nil
}

// FalliblePredicate adapts a partial Go function into a Predicate.
type FalliblePredicate struct {
	name string
	fn   func(ctx context.Context, v any) (bool, error)
}

// NewFalliblePredicate returns a Predicate whose test may fail.
func NewFalliblePredicate(name string, fn func(ctx context.Context, v any) (bool, error)) *FalliblePredicate {
	return &FalliblePredicate{name: name, fn: fn}
}

func (p *FalliblePredicate) Name() string { return p.name }

func (p *FalliblePredicate) Test(ctx context.Context, v any) (bool, error) {
	return p.fn(ctx, v)
}
