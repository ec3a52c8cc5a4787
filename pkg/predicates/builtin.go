// Package predicates provides the flat contracts that contract notation
// refers to by name: the builtin type and number tests, combinators, and
// predicates backed by CEL expressions, JSON Schemas, and WASM modules.
package predicates

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// ErrDomain is returned by a predicate applied outside its domain, such as
// even? on a non-integer. The checker reports it as a PredicateFailure.
var ErrDomain = errors.New("value outside predicate domain")

var (
	Any     = contract.FlatOf("any/c", func(any) bool { return true })
	None    = contract.FlatOf("none/c", func(any) bool { return false })
	Integer = contract.FlatOf("integer?", value.IsInteger)
	Number  = contract.FlatOf("number?", value.IsNumber)
	Real    = contract.FlatOf("real?", value.IsNumber)

	ExactInteger = contract.FlatOf("exact-integer?", func(v any) bool {
		_, ok := value.AsExactInt(v)
		return ok
	})
	ExactNonnegativeInteger = contract.FlatOf("exact-nonnegative-integer?", func(v any) bool {
		n, ok := value.AsExactInt(v)
		return ok && n >= 0
	})
	String = contract.FlatOf("string?", func(v any) bool {
		_, ok := v.(string)
		return ok
	})
	Boolean = contract.FlatOf("boolean?", func(v any) bool {
		_, ok := v.(bool)
		return ok
	})
	Procedure = contract.FlatOf("procedure?", value.IsProcedure)
	Null      = contract.FlatOf("null?", func(v any) bool {
		if v == nil {
			return true
		}
		l, ok := v.([]any)
		return ok && len(l) == 0
	})

	Even     = mustFlat(integerTest("even?", func(n int64) bool { return n%2 == 0 }))
	Odd      = mustFlat(integerTest("odd?", func(n int64) bool { return n%2 != 0 }))
	Positive = mustFlat(signTest("positive?", func(s int) bool { return s > 0 }))
	Negative = mustFlat(signTest("negative?", func(s int) bool { return s < 0 }))
	Zero     = mustFlat(signTest("zero?", func(s int) bool { return s == 0 }))
)

// All lists the builtin flat contracts.
func All() []*contract.Flat {
	return []*contract.Flat{
		Any, None, Integer, Number, Real, ExactInteger, ExactNonnegativeInteger,
		String, Boolean, Procedure, Null, Even, Odd, Positive, Negative, Zero,
	}
}

func integerTest(name string, test func(n int64) bool) contract.Predicate {
	return contract.NewFalliblePredicate(name, func(_ context.Context, v any) (bool, error) {
		n, ok := value.IntegerValue(v)
		if !ok {
			return false, fmt.Errorf("%s: %w: expected integer?, given %s", name, ErrDomain, value.Format(v))
		}
		return test(n), nil
	})
}

func signTest(name string, test func(sign int) bool) contract.Predicate {
	return contract.NewFalliblePredicate(name, func(_ context.Context, v any) (bool, error) {
		c, err := value.Compare(v, 0)
		if err != nil {
			return false, fmt.Errorf("%s: %w: expected real?, given %s", name, ErrDomain, value.Format(v))
		}
		return test(c), nil
	})
}

func mustFlat(p contract.Predicate) *contract.Flat {
	f, err := contract.NewFlat(p)
	if err != nil {
		panic(err)
	}
	return f
}
