package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotNumber is returned by arithmetic on non-numeric operands.
	ErrNotNumber = errors.New("not a number")
	// ErrUnordered is returned by Compare when an operand is NaN.
	ErrUnordered = errors.New("unordered comparison")
)

// AsExactInt returns v as an int64 when v is an exact integer.
func AsExactInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// AsFloat returns v as a float64 when v is any number.
func AsFloat(v any) (float64, bool) {
	if i, ok := AsExactInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// IsNumber reports whether v is numeric.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

// IsInteger reports whether v is an integer. Inexact numbers with an
// integral finite value count, so 30.0 is an integer and 30.1 is not.
func IsInteger(v any) bool {
	if _, ok := AsExactInt(v); ok {
		return true
	}
	f, ok := AsFloat(v)
	if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	return f == math.Trunc(f)
}

// IntegerValue returns the integral value of v for IsInteger values.
func IntegerValue(v any) (int64, bool) {
	if i, ok := AsExactInt(v); ok {
		return i, true
	}
	if !IsInteger(v) {
		return 0, false
	}
	f, _ := AsFloat(v)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= 0x1p63 || f < -0x1p63 {
		return 0, false
	}
	return int64(f), true
}

// Add sums numbers. The result is exact only when every operand is exact
// and the exact sum fits in an int64; otherwise it is the float64 sum.
func Add(xs ...any) (any, error) {
	exact := true
	var isum int64
	var fsum float64
	for _, x := range xs {
		if i, ok := AsExactInt(x); ok {
			if exact {
				sum := isum + i
				// Same-signed operands with a differently signed sum overflowed.
				if (isum >= 0) == (i >= 0) && (sum >= 0) != (i >= 0) {
					exact = false
				}
				isum = sum
			}
			fsum += float64(i)
			continue
		}
		f, ok := AsFloat(x)
		if !ok {
			return nil, fmt.Errorf("+: %w: %s", ErrNotNumber, Format(x))
		}
		exact = false
		fsum += f
	}
	if exact {
		return isum, nil
	}
	return fsum, nil
}

// Compare returns -1, 0 or 1 ordering two numbers.
func Compare(a, b any) (int, error) {
	if ai, ok := AsExactInt(a); ok {
		if bi, ok := AsExactInt(b); ok {
			switch {
			case ai < bi:
				return -1, nil
			case ai > bi:
				return 1, nil
			}
			return 0, nil
		}
	}
	af, ok := AsFloat(a)
	if !ok {
		return 0, fmt.Errorf("compare: %w: %s", ErrNotNumber, Format(a))
	}
	bf, ok := AsFloat(b)
	if !ok {
		return 0, fmt.Errorf("compare: %w: %s", ErrNotNumber, Format(b))
	}
	if math.IsNaN(af) || math.IsNaN(bf) {
		return 0, fmt.Errorf("compare: %w: %s and %s", ErrUnordered, Format(a), Format(b))
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	}
	return 0, nil
}
