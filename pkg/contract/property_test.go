package contract_test

import (
	"context"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/predicates"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// TestWrapTransparency verifies a passing application returns exactly what
// the underlying procedure returns.
// Property: wrap(add)(x, y) == add(x, y) for integers x, y
func TestWrapTransparency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	w := contract.MustWrap(add(), intBinop(), contract.WithDefinitionSite(libSite))

	properties.Property("contracted add agrees with add", prop.ForAll(
		func(x, y int64) bool {
			out, err := w.Call(context.Background(), clientSite, x, y)
			return err == nil && out == x+y
		},
		gen.Int64Range(-1<<40, 1<<40),
		gen.Int64Range(-1<<40, 1<<40),
	))

	properties.TestingRun(t)
}

// TestArgumentBlame verifies non-integral arguments always blame the
// caller at the first offending position.
// Property: culprit(wrap(add)(x+f, y)) == CallSite, position == arg 1
func TestArgumentBlame(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	w := contract.MustWrap(add(), intBinop(), contract.WithDefinitionSite(libSite))

	properties.Property("bad first argument blames the call site", prop.ForAll(
		func(x int32, frac float64, y int32) bool {
			if frac == 0 {
				return true
			}
			_, err := w.Call(context.Background(), clientSite, float64(x)+frac, y)
			b, ok := contract.BlameOf(err)
			return ok &&
				b.Culprit == contract.CallSite &&
				b.Position == contract.Argument(1) &&
				b.Location == clientSite
		},
		gen.Int32(),
		gen.Float64Range(0.01, 0.99),
		gen.Int32(),
	))

	properties.Property("bad second argument blames the call site", prop.ForAll(
		func(x int32, y string) bool {
			_, err := w.Call(context.Background(), clientSite, x, y)
			b, ok := contract.BlameOf(err)
			return ok && b.Culprit == contract.CallSite && b.Position == contract.Argument(2)
		},
		gen.Int32(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestPolarityInversion verifies that supplying a misbehaving function
// argument blames the supplier, whatever the offset.
// Property: f = λx. x + k breaks odd? exactly when k is even, and then the
// call site is blamed
func TestPolarityInversion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("range failures of arguments blame the call site", prop.ForAll(
		func(k int16, half int16) bool {
			x := int64(half) * 2
			f := value.Lambda1("f", func(v any) (any, error) { return value.Add(v, int64(k)) })
			out, err := applyPlusOne(t).Call(context.Background(), clientSite, f, x)
			if k%2 != 0 {
				return err == nil && out == x+int64(k)+1
			}
			b, ok := contract.BlameOf(err)
			return ok && b.Culprit == contract.CallSite && b.Position == contract.Range && b.Inverted
		},
		gen.Int16(),
		gen.Int16(),
	))

	properties.TestingRun(t)
}

// TestCheckIdempotence verifies repeated checks of the same value agree.
// Property: Check(v) == Check(v)
func TestCheckIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	flats := []*contract.Flat{predicates.Integer, predicates.Even, predicates.Positive, predicates.Number}

	properties.Property("checks are pure", prop.ForAll(
		func(f float64) bool {
			if math.IsNaN(f) {
				return true
			}
			for _, c := range flats {
				a, errA := c.Check(context.Background(), f)
				b, errB := c.Check(context.Background(), f)
				if a != b || (errA == nil) != (errB == nil) {
					return false
				}
			}
			return true
		},
		gen.Float64(),
	))

	properties.Property("party swap is an involution", prop.ForAll(
		func(callSite bool) bool {
			p := contract.DefinitionSite
			if callSite {
				p = contract.CallSite
			}
			return p.Swap() != p && p.Swap().Swap() == p
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}
