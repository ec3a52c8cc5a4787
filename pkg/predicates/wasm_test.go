package predicates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// evenModule exports two (i64) -> i32 functions: "even" computes
// x % 2 == 0 and "trap" executes unreachable.
var evenModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i64) -> i32
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7e, 0x01, 0x7f,
	// func: two functions of type 0
	0x03, 0x03, 0x02, 0x00, 0x00,
	// export: "even" -> 0, "trap" -> 1
	0x07, 0x0f, 0x02,
	0x04, 0x65, 0x76, 0x65, 0x6e, 0x00, 0x00,
	0x04, 0x74, 0x72, 0x61, 0x70, 0x00, 0x01,
	// code
	0x0a, 0x0e, 0x02,
	0x08, 0x00, 0x20, 0x00, 0x42, 0x02, 0x81, 0x50, 0x0b,
	0x03, 0x00, 0x00, 0x0b,
}

func TestWASMPredicate(t *testing.T) {
	ctx := context.Background()
	mod, err := LoadWASM(ctx, evenModule, WASMConfig{MemoryLimitPages: 1})
	require.NoError(t, err)
	defer func() { _ = mod.Close(ctx) }()

	even, err := mod.Predicate("wasm-even?", "even")
	require.NoError(t, err)
	assert.Equal(t, "wasm-even?", even.Name())

	assert.True(t, check(t, even, 4))
	assert.True(t, check(t, even, 0))
	assert.True(t, check(t, even, 4.0))
	assert.False(t, check(t, even, 3))
	assert.False(t, check(t, even, -3))

	_, err = even.Check(ctx, 2.5)
	assert.ErrorIs(t, err, ErrDomain)
	assert.ErrorIs(t, err, contract.ErrPredicateFailure)

	trap, err := mod.Predicate("trap?", "trap")
	require.NoError(t, err)
	_, err = trap.Check(ctx, 1)
	assert.ErrorIs(t, err, contract.ErrPredicateFailure)

	_, err = mod.Predicate("missing?", "missing")
	assert.Error(t, err)
}

func TestLoadWASMRejectsGarbage(t *testing.T) {
	_, err := LoadWASM(context.Background(), []byte("not wasm"), WASMConfig{})
	assert.Error(t, err)
}
