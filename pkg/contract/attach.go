package contract

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// CheckFlat checks v against c and, on failure, blames culprit at loc.
// It returns (nil, nil) when v satisfies c and a *PredicateFailure when the
// predicate errors.
func CheckFlat(ctx context.Context, c *Flat, v any, culprit Party, loc srcloc.Location) (*Blame, error) {
	ok, err := c.Check(ctx, v)
	if err != nil || ok {
		return nil, err
	}
	o := defaultOptions()
	return &Blame{
		ID:       o.newID(),
		Culprit:  culprit,
		Position: Position{Kind: PositionValue},
		Violated: c,
		Expected: c.Name(),
		Actual:   v,
		Location: loc,
		At:       o.now(),
	}, nil
}

// Attach puts v behind c on behalf of the party at the definition site
// (see WithDefinitionSite). A flat contract is checked immediately and a
// failure blames the definition site; a function contract wraps v.
func Attach(ctx context.Context, c Contract, v any, opts ...Option) (any, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	subject := o.name
	if subject == "" {
		subject = "value"
	}

	switch ctc := c.(type) {
	case *Flat:
		if isNil(ctc) {
			break
		}
		ok, err := ctc.Check(ctx, v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, report(ctx, o, valueBlame(o, subject, ctc, ctc.Name(), v))
		}
		return v, nil
	case *Function:
		if ctc == nil {
			break
		}
		proc, ok := v.(value.Procedure)
		if !ok {
			return nil, report(ctx, o, valueBlame(o, subject, ctc, procedureOfArity(ctc.Arity()), v))
		}
		return Wrap(proc, ctc, opts...)
	}
	return nil, &WellFormednessError{Kind: ErrMalformed, Subject: o.name, Detail: fmt.Sprintf("cannot attach %T", c)}
}

func valueBlame(o *options, subject string, c Contract, expected string, v any) *Blame {
	return &Blame{
		ID:             o.newID(),
		Culprit:        DefinitionSite,
		Position:       Position{Kind: PositionValue},
		Violated:       c,
		Expected:       expected,
		Actual:         v,
		Location:       o.def,
		DefinitionSite: o.def,
		Subject:        subject,
		At:             o.now(),
	}
}
