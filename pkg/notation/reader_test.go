package notation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/predicates"
)

func TestRead_RoundTrips(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"integer?", "integer?"},
		{"(-> integer? integer? integer?)", "(-> integer? integer? integer?)"},
		{"(->/c (->/c even? odd?) even? even?)", "(-> (-> even? odd?) even? even?)"},
		{"(-> integer?)", "(-> integer?)"},
		{"[-> string? boolean?]", "(-> string? boolean?)"},
		{"(and/c integer? (>/c 0))", "(and/c integer? (>/c 0))"},
		{"(or/c string? (not/c number?))", "(or/c string? (not/c number?))"},
		{"(between/c 1 2.5)", "(between/c 1 2.5)"},
		{"(-> (</c -3) (=/c 0))", "(-> (</c -3) (=/c 0))"},
		{"  ; leading comment\n (-> any/c\n  any/c) ; trailing", "(-> any/c any/c)"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			c, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.out, Print(c))

			again, err := Parse(Print(c))
			require.NoError(t, err)
			assert.Equal(t, Print(c), Print(again))
		})
	}
}

func TestRead_ResolvesPredicates(t *testing.T) {
	c := MustParse("(-> integer? integer? integer?)")
	fn, ok := c.(*contract.Function)
	require.True(t, ok)
	assert.Equal(t, 2, fn.Arity())
	assert.Same(t, predicates.Integer, fn.Arg(1))

	between := MustParse("(between/c 1 10)").(*contract.Flat)
	ok, err := between.Check(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRead_Errors(t *testing.T) {
	cases := []struct {
		in   string
		line int
		col  int
		msg  string
	}{
		{"", 1, 1, "empty contract"},
		{"frobnicate?", 1, 1, "unknown predicate frobnicate?"},
		{"(-> integer?", 1, 13, "unclosed"},
		{"(-> integer?]", 1, 13, "closes"},
		{"(->)", 1, 2, "needs a range contract"},
		{"(-> integer?))", 1, 14, "after contract"},
		{"(wat integer?)", 1, 2, "unknown combinator wat"},
		{"(between/c 1)", 1, 1, "expected 2 numbers"},
		{"(between/c 1 x)", 1, 14, "expected a number"},
		{"(and/c integer? (-> integer? integer?))", 1, 8, "predicates only"},
		{"(not/c integer? even?)", 1, 2, "exactly one"},
		{"(-> 5 integer?)", 1, 5, "number 5"},
		{"(-> integer?\n    \"str\")", 2, 5, "unexpected"},
		{"(())", 1, 2, "expected a contract combinator"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			_, err := NewReader(nil).Read("m.hoc", tc.in)
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			assert.Equal(t, tc.line, se.Line)
			assert.Equal(t, tc.col, se.Column)
			assert.Contains(t, se.Msg, tc.msg)
			assert.Contains(t, err.Error(), "m.hoc:")
		})
	}
}

func TestReader_Define(t *testing.T) {
	r := NewReader(nil)
	binop, err := r.Read("defs", "(-> integer? integer? integer?)")
	require.NoError(t, err)
	require.NoError(t, r.Define("int-binop", binop))
	assert.Error(t, r.Define("int-binop", binop))
	assert.Error(t, r.Define("integer?", binop))

	c, err := r.Read("use", "(-> int-binop integer?)")
	require.NoError(t, err)
	assert.Equal(t, "(-> (-> integer? integer? integer?) integer?)", Print(c))
}

func TestReader_CustomRegistry(t *testing.T) {
	reg := predicates.NewRegistry()
	small := contract.FlatOf("small?", func(v any) bool { return true })
	require.NoError(t, reg.Register(small))

	r := NewReader(reg)
	c, err := r.Read("", "(-> small? small?)")
	require.NoError(t, err)
	assert.Same(t, small, c.(*contract.Function).Range())

	_, err = r.Read("", "integer?")
	assert.Error(t, err, "custom registries do not include builtins")
}
