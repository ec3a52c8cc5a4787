package predicates

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// And holds when every conjunct holds. Conjuncts are tested left to right
// and testing stops at the first false answer.
func And(flats ...*contract.Flat) *contract.Flat {
	name := compose("and/c", flats)
	return mustFlat(contract.NewFalliblePredicate(name, func(ctx context.Context, v any) (bool, error) {
		for _, f := range flats {
			ok, err := f.Predicate().Test(ctx, v)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}))
}

// Or holds when some disjunct holds.
func Or(flats ...*contract.Flat) *contract.Flat {
	name := compose("or/c", flats)
	return mustFlat(contract.NewFalliblePredicate(name, func(ctx context.Context, v any) (bool, error) {
		for _, f := range flats {
			ok, err := f.Predicate().Test(ctx, v)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}))
}

// Not negates a flat contract.
func Not(f *contract.Flat) *contract.Flat {
	name := fmt.Sprintf("(not/c %s)", f.Name())
	return mustFlat(contract.NewFalliblePredicate(name, func(ctx context.Context, v any) (bool, error) {
		ok, err := f.Predicate().Test(ctx, v)
		return !ok && err == nil, err
	}))
}

// Between holds for reals r with lo <= r <= hi.
func Between(lo, hi any) (*contract.Flat, error) {
	if !value.IsNumber(lo) || !value.IsNumber(hi) {
		return nil, &contract.WellFormednessError{
			Kind:   contract.ErrMalformed,
			Detail: fmt.Sprintf("between/c bounds must be numbers, got %s and %s", value.Format(lo), value.Format(hi)),
		}
	}
	name := fmt.Sprintf("(between/c %s %s)", value.Format(lo), value.Format(hi))
	return mustFlat(contract.NewPredicate(name, func(v any) bool {
		a, err := value.Compare(v, lo)
		if err != nil {
			return false
		}
		b, err := value.Compare(v, hi)
		return err == nil && a >= 0 && b <= 0
	})), nil
}

// GreaterThan is (>/c n).
func GreaterThan(n any) (*contract.Flat, error) {
	return comparison(">/c", n, func(c int) bool { return c > 0 })
}

// LessThan is (</c n).
func LessThan(n any) (*contract.Flat, error) {
	return comparison("</c", n, func(c int) bool { return c < 0 })
}

// EqualTo is (=/c n).
func EqualTo(n any) (*contract.Flat, error) {
	return comparison("=/c", n, func(c int) bool { return c == 0 })
}

func comparison(op string, n any, holds func(int) bool) (*contract.Flat, error) {
	if !value.IsNumber(n) {
		return nil, &contract.WellFormednessError{
			Kind:   contract.ErrMalformed,
			Detail: fmt.Sprintf("%s bound must be a number, got %s", op, value.Format(n)),
		}
	}
	name := fmt.Sprintf("(%s %s)", op, value.Format(n))
	return mustFlat(contract.NewPredicate(name, func(v any) bool {
		c, err := value.Compare(v, n)
		return err == nil && holds(c)
	})), nil
}

func compose(op string, flats []*contract.Flat) string {
	parts := make([]string, 0, len(flats)+1)
	parts = append(parts, op)
	for _, f := range flats {
		parts = append(parts, f.Name())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
