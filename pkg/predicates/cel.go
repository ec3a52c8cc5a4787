package predicates

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// CELEnv compiles CEL expressions into predicates and procedures.
// Predicates see the checked value as `value`; procedures see their
// arguments as the list `args`. Compiled programs are cached per
// expression.
type CELEnv struct {
	env       *cel.Env
	mu        sync.RWMutex
	prgCache  map[string]cel.Program
	costLimit uint64
}

// NewCELEnv creates a CEL environment with the default cost limit.
func NewCELEnv() (*CELEnv, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("args", cel.ListType(cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELEnv{
		env:       env,
		prgCache:  make(map[string]cel.Program),
		costLimit: 10000,
	}, nil
}

// Predicate compiles expr into a flat contract named name. Compilation
// errors are reported here; evaluation errors and non-boolean results
// become PredicateFailures when the contract is checked.
func (e *CELEnv) Predicate(name, expr string) (*contract.Flat, error) {
	prg, err := e.program(expr)
	if err != nil {
		return nil, fmt.Errorf("predicate %s: %w", name, err)
	}
	return contract.NewFlat(contract.NewFalliblePredicate(name, func(ctx context.Context, v any) (bool, error) {
		out, _, err := prg.ContextEval(ctx, map[string]any{"value": toCEL(v), "args": []any{}})
		if err != nil {
			return false, fmt.Errorf("eval: %w", err)
		}
		b, ok := out.(types.Bool)
		if !ok {
			return false, fmt.Errorf("result not bool: %s", out.Type().TypeName())
		}
		return bool(b), nil
	}))
}

// Procedure compiles expr into a procedure of the given arity.
func (e *CELEnv) Procedure(name string, arity int, expr string) (value.Procedure, error) {
	prg, err := e.program(expr)
	if err != nil {
		return nil, fmt.Errorf("procedure %s: %w", name, err)
	}
	return value.NewProcedure(name, arity, func(ctx context.Context, args []any) (any, error) {
		in := make([]any, len(args))
		for i, a := range args {
			in[i] = toCEL(a)
		}
		out, _, err := prg.ContextEval(ctx, map[string]any{"value": nil, "args": in})
		if err != nil {
			return nil, fmt.Errorf("%s: eval: %w", name, err)
		}
		return fromCEL(out)
	}), nil
}

func (e *CELEnv) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.prgCache[expr]; hit {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(e.costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.prgCache[expr] = prg
	return prg, nil
}

// toCEL maps host values onto types the CEL adapter understands.
func toCEL(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toCEL(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = toCEL(e)
		}
		return out
	}
	if i, ok := value.AsExactInt(v); ok {
		return i
	}
	return v
}

func fromCEL(v ref.Val) (any, error) {
	switch x := v.(type) {
	case types.Int:
		return int64(x), nil
	case types.Uint:
		return int64(x), nil
	case types.Double:
		return float64(x), nil
	case types.String:
		return string(x), nil
	case types.Bool:
		return bool(x), nil
	case types.Null:
		return nil, nil
	case *types.Err:
		return nil, x
	}
	if l, ok := v.(traits.Lister); ok {
		size, _ := l.Size().(types.Int)
		out := make([]any, 0, int(size))
		for i := types.Int(0); i < size; i++ {
			e, err := fromCEL(l.Get(i))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}
	if m, ok := v.(traits.Mapper); ok {
		out := make(map[string]any)
		for it := m.Iterator(); it.HasNext() == types.True; {
			k := it.Next()
			key, ok := k.(types.String)
			if !ok {
				return nil, fmt.Errorf("map key %s is not a string", k.Type().TypeName())
			}
			e, err := fromCEL(m.Get(k))
			if err != nil {
				return nil, err
			}
			out[string(key)] = e
		}
		return out, nil
	}
	return v.Value(), nil
}
