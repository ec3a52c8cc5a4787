// Package value is the host value model the contract system operates on.
//
// Values are plain Go values: exact integers are int64 (other Go integer
// kinds are accepted), inexact numbers are float64, strings, booleans, nil
// for the empty list, []any for lists, and Procedure for callables.
package value

import (
	"context"
	"errors"
	"fmt"
)

// ErrArity is returned when a procedure is applied to the wrong number of
// arguments.
var ErrArity = errors.New("arity mismatch")

// Procedure is a callable host value with a fixed arity.
type Procedure interface {
	Name() string
	Arity() int
	Apply(ctx context.Context, args []any) (any, error)
}

// Func is the body of a procedure built with NewProcedure.
type Func func(ctx context.Context, args []any) (any, error)

type lambda struct {
	name  string
	arity int
	fn    Func
}

// NewProcedure returns a Procedure of the given arity. The body is only
// invoked with exactly arity arguments.
func NewProcedure(name string, arity int, fn Func) Procedure {
	if arity < 0 {
		arity = 0
	}
	return &lambda{name: name, arity: arity, fn: fn}
}

// Lambda1 adapts a one-argument Go function.
func Lambda1(name string, fn func(x any) (any, error)) Procedure {
	return NewProcedure(name, 1, func(_ context.Context, args []any) (any, error) {
		return fn(args[0])
	})
}

// Lambda2 adapts a two-argument Go function.
func Lambda2(name string, fn func(x, y any) (any, error)) Procedure {
	return NewProcedure(name, 2, func(_ context.Context, args []any) (any, error) {
		return fn(args[0], args[1])
	})
}

func (l *lambda) Name() string { return l.name }
func (l *lambda) Arity() int   { return l.arity }

func (l *lambda) Apply(ctx context.Context, args []any) (any, error) {
	if len(args) != l.arity {
		return nil, fmt.Errorf("%s: %w: expected %d, got %d", l.displayName(), ErrArity, l.arity, len(args))
	}
	return l.fn(ctx, args)
}

func (l *lambda) displayName() string {
	if l.name == "" {
		return "anonymous procedure"
	}
	return l.name
}

// IsProcedure reports whether v is callable.
func IsProcedure(v any) bool {
	_, ok := v.(Procedure)
	return ok
}

// Call applies v if it is a Procedure.
func Call(ctx context.Context, v any, args ...any) (any, error) {
	p, ok := v.(Procedure)
	if !ok {
		return nil, fmt.Errorf("application: not a procedure: %s", Format(v))
	}
	return p.Apply(ctx, args)
}
