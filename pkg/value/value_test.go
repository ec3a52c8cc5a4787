package value

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(21), "21"},
		{10, "10"},
		{10.1, "10.1"},
		{30.0, "30.0"},
		{true, "#t"},
		{false, "#f"},
		{"hi", `"hi"`},
		{nil, "'()"},
		{[]any{1, "a", nil}, `'(1 "a" ())`},
		{map[string]any{"b": 2, "a": 1}, `#hash(("a" . 1) ("b" . 2))`},
		{json.Number("7"), "7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in))
	}

	p := Lambda1("inc", func(x any) (any, error) { return Add(x, 1) })
	assert.Equal(t, "#<procedure:inc>", Format(p))
	assert.Equal(t, "#<procedure>", Format(NewProcedure("", 0, nil)))
}

func TestIsInteger(t *testing.T) {
	assert.True(t, IsInteger(10))
	assert.True(t, IsInteger(int64(-3)))
	assert.True(t, IsInteger(30.0))
	assert.False(t, IsInteger(10.1))
	assert.False(t, IsInteger("10"))
	assert.False(t, IsInteger(nil))

	n, ok := IntegerValue(4.0)
	require.True(t, ok)
	assert.Equal(t, int64(4), n)
}

func TestIntegerValue_Range(t *testing.T) {
	_, ok := IntegerValue(0x1p63)
	assert.False(t, ok, "2^63 does not fit in an int64")

	n, ok := IntegerValue(-0x1p63)
	require.True(t, ok)
	assert.Equal(t, int64(math.MinInt64), n)

	_, ok = IntegerValue(-0x1p64)
	assert.False(t, ok)
}

func TestAdd_Overflow(t *testing.T) {
	sum, err := Add(int64(math.MaxInt64), int64(1))
	require.NoError(t, err)
	f, isFloat := sum.(float64)
	require.True(t, isFloat, "an overflowing exact sum becomes inexact, got %T", sum)
	assert.Equal(t, 0x1p63, f)

	sum, err = Add(int64(math.MinInt64), int64(-1))
	require.NoError(t, err)
	assert.IsType(t, float64(0), sum)

	sum, err = Add(int64(math.MaxInt64), int64(-1), int64(1))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), sum)
}

func TestAdd(t *testing.T) {
	sum, err := Add(10, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(21), sum)

	sum, err = Add(10, 20, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 30.1, sum, 1e-9)

	_, err = Add(1, "x")
	require.ErrorIs(t, err, ErrNotNumber)
}

func TestCompare(t *testing.T) {
	c, err := Compare(1, 2.5)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(int64(3), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = Compare("a", 1)
	require.Error(t, err)

	_, err = Compare(math.NaN(), 0)
	assert.ErrorIs(t, err, ErrUnordered)
	_, err = Compare(1, math.NaN())
	assert.ErrorIs(t, err, ErrUnordered)
	_, err = Compare(math.NaN(), math.NaN())
	assert.ErrorIs(t, err, ErrUnordered)
}

func TestProcedure_ArityEnforced(t *testing.T) {
	p := Lambda2("add", func(x, y any) (any, error) { return Add(x, y) })
	assert.Equal(t, 2, p.Arity())

	_, err := p.Apply(context.Background(), []any{1})
	require.ErrorIs(t, err, ErrArity)

	out, err := Call(context.Background(), p, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	_, err = Call(context.Background(), 5, 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrArity))
}
