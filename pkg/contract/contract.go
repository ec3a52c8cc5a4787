// Package contract implements higher-order contracts with blame.
//
// A Contract is either a *Flat contract, checked immediately against a
// value, or a *Function contract, enforced by wrapping a procedure so that
// every application checks its arguments and its result. Function-typed
// arguments and results are not checked when they cross the boundary;
// they are wrapped in turn and checked when they are applied.
//
// Failed checks produce a *Blame naming the party at fault, the call site
// or the definition site. Blame for a wrapped argument is computed with
// the polarity of the enclosing contract inverted.
package contract

import (
	"context"
	"fmt"
	"strings"
)

// Kind discriminates the two contract shapes.
type Kind uint8

const (
	KindFlat Kind = iota + 1
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Contract is a closed union implemented by *Flat and *Function only.
type Contract interface {
	Kind() Kind
	String() string
	sealed()
}

// Flat is a contract reducible to a single predicate check.
type Flat struct {
	pred Predicate
	name string
}

// NewFlat wraps a predicate. The contract is named after the predicate.
func NewFlat(p Predicate) (*Flat, error) {
	if p == nil {
		return nil, &WellFormednessError{Kind: ErrMalformed, Detail: "flat contract without predicate"}
	}
	return &Flat{pred: p, name: p.Name()}, nil
}

// FlatOf builds a named flat contract from a total Go predicate.
func FlatOf(name string, fn func(v any) bool) *Flat {
	return &Flat{pred: NewPredicate(name, fn), name: name}
}

func (f *Flat) Kind() Kind { return KindFlat }
func (f *Flat) sealed()    {}

// Name is the description used as "expected" in blame reports.
func (f *Flat) Name() string { return f.name }

// Predicate returns the wrapped predicate.
func (f *Flat) Predicate() Predicate { return f.pred }

func (f *Flat) String() string { return f.name }

// Check applies the predicate to v. A predicate that errors yields a
// *PredicateFailure; a false answer is (false, nil).
func (f *Flat) Check(ctx context.Context, v any) (bool, error) {
	ok, err := f.pred.Test(ctx, v)
	if err != nil {
		return false, &PredicateFailure{Predicate: f.name, Value: v, Err: err}
	}
	return ok, nil
}

// Function is a contract over a procedure's arguments and result.
type Function struct {
	args []Contract
	ret  Contract
}

// NewFunction builds a function contract. Its arity is len(args).
func NewFunction(args []Contract, ret Contract) (*Function, error) {
	for i, a := range args {
		if isNil(a) {
			return nil, &WellFormednessError{
				Kind:   ErrMalformed,
				Detail: fmt.Sprintf("function contract has no contract for argument %d", i+1),
			}
		}
	}
	if isNil(ret) {
		return nil, &WellFormednessError{Kind: ErrMalformed, Detail: "function contract has no range contract"}
	}
	cp := make([]Contract, len(args))
	copy(cp, args)
	return &Function{args: cp, ret: ret}, nil
}

// Arrow builds a function contract in arrow order: argument contracts
// followed by the range contract, as in (-> integer? integer? integer?).
func Arrow(parts ...Contract) (*Function, error) {
	if len(parts) == 0 {
		return nil, &WellFormednessError{Kind: ErrMalformed, Detail: "arrow contract needs a range contract"}
	}
	return NewFunction(parts[:len(parts)-1], parts[len(parts)-1])
}

// MustArrow is Arrow for contracts known to be well formed.
func MustArrow(parts ...Contract) *Function {
	f, err := Arrow(parts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) sealed()    {}

// Arity is the number of argument contracts.
func (f *Function) Arity() int { return len(f.args) }

// Arg returns the contract of the i-th argument, counting from 1, or nil
// when i is outside 1..Arity().
func (f *Function) Arg(i int) Contract {
	if i < 1 || i > len(f.args) {
		return nil
	}
	return f.args[i-1]
}

// Args returns a copy of the argument contracts.
func (f *Function) Args() []Contract {
	cp := make([]Contract, len(f.args))
	copy(cp, f.args)
	return cp
}

// Range returns the result contract.
func (f *Function) Range() Contract { return f.ret }

func (f *Function) String() string {
	var b strings.Builder
	b.WriteString("(->")
	for _, a := range f.args {
		b.WriteString(" ")
		b.WriteString(a.String())
	}
	b.WriteString(" ")
	b.WriteString(f.ret.String())
	b.WriteString(")")
	return b.String()
}

// Depth is the nesting depth of function-typed positions in c. Flat
// contracts have depth 0.
func Depth(c Contract) int {
	switch x := c.(type) {
	case *Flat:
		return 0
	case *Function:
		d := Depth(x.ret)
		for _, a := range x.args {
			if ad := Depth(a); ad > d {
				d = ad
			}
		}
		return d + 1
	default:
		panic(fmt.Sprintf("contract: unknown contract type %T", c))
	}
}

func isNil(c Contract) bool {
	switch x := c.(type) {
	case nil:
		return true
	case *Flat:
		return x == nil || x.pred == nil
	case *Function:
		return x == nil
	}
	return true
}
