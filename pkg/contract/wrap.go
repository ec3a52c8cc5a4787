package contract

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// Wrapped is a procedure whose applications are checked against a
// function contract. Wrapped values are immutable and safe for concurrent
// use; every application is checked independently.
type Wrapped struct {
	proc      value.Procedure
	contract  *Function
	name      string
	def       srcloc.Location
	// call is the client party. Wrappers created for function-typed
	// arguments fix it to the call site that supplied the argument.
	call      srcloc.Location
	callFixed bool
	inverted  bool
	opts      *options
}

var _ value.Procedure = (*Wrapped)(nil)

// Wrap attaches a function contract to a procedure. The contract's arity
// must equal the procedure's arity.
func Wrap(proc value.Procedure, fn *Function, opts ...Option) (*Wrapped, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if proc == nil {
		return nil, &WellFormednessError{Kind: ErrMalformed, Subject: o.name, Detail: "no procedure to wrap"}
	}
	name := o.name
	if name == "" {
		name = proc.Name()
	}
	if fn == nil {
		return nil, &WellFormednessError{Kind: ErrMalformed, Subject: name, Detail: "no function contract"}
	}
	if proc.Arity() != fn.Arity() {
		return nil, &WellFormednessError{
			Kind:    ErrArityMismatch,
			Subject: name,
			Detail:  fmt.Sprintf("contract %s expects %d arguments, procedure takes %d", fn, fn.Arity(), proc.Arity()),
		}
	}
	return &Wrapped{
		proc:     proc,
		contract: fn,
		name:     name,
		def:      o.def,
		opts:     o,
	}, nil
}

// MustWrap is Wrap for statically known procedures and contracts.
func MustWrap(proc value.Procedure, fn *Function, opts ...Option) *Wrapped {
	w, err := Wrap(proc, fn, opts...)
	if err != nil {
		panic(err)
	}
	return w
}

func (w *Wrapped) Name() string { return w.name }
func (w *Wrapped) Arity() int   { return w.contract.Arity() }

// Contract returns the enforced function contract.
func (w *Wrapped) Contract() *Function { return w.contract }

// Underlying returns the wrapped procedure.
func (w *Wrapped) Underlying() value.Procedure { return w.proc }

// DefinitionSite returns the location of the providing party.
func (w *Wrapped) DefinitionSite() srcloc.Location { return w.def }

// Inverted reports whether the wrapper's parties are swapped relative to
// the outermost contract.
func (w *Wrapped) Inverted() bool { return w.inverted }

// Apply checks and performs one application. The call site is taken from
// ctx (see WithCallSite).
func (w *Wrapped) Apply(ctx context.Context, args []any) (any, error) {
	return w.apply(ctx, CallSiteFrom(ctx), args)
}

// ApplyAt is Apply with an explicit call site.
func (w *Wrapped) ApplyAt(ctx context.Context, call srcloc.Location, args []any) (any, error) {
	return w.apply(ctx, call, args)
}

// Call is ApplyAt with variadic arguments.
func (w *Wrapped) Call(ctx context.Context, call srcloc.Location, args ...any) (any, error) {
	return w.apply(ctx, call, args)
}

type application struct {
	state State
	trace ApplicationTrace
	rec   ApplicationRecord
	blame *Blame
}

func (a *application) advance(to State) {
	if !canTransition(a.state, to) {
		panic(fmt.Sprintf("contract: illegal transition %s -> %s", a.state, to))
	}
	a.trace.Transition(a.state, to)
	a.state = to
}

func (a *application) check(pos Position, c Contract, o Outcome) {
	a.rec.Arguments = append(a.rec.Arguments, ArgumentCheck{Position: pos, Contract: c.String(), Outcome: o})
}

func (a *application) skipFrom(fn *Function, next int) {
	for i := next; i <= fn.Arity(); i++ {
		a.check(Argument(i), fn.Arg(i), OutcomeSkipped)
	}
	a.rec.Result = OutcomeSkipped
}

func (w *Wrapped) apply(ctx context.Context, call srcloc.Location, args []any) (result any, err error) {
	client := w.client(call)
	app := &application{state: StatePending}
	app.rec = ApplicationRecord{
		ID:       w.opts.newID(),
		Subject:  w.name,
		CallSite: client,
		Started:  w.opts.now(),
	}
	ctx, app.trace = w.opts.observer.BeginApplication(ctx, ApplicationInfo{
		ID:       app.rec.ID,
		Subject:  w.name,
		Arity:    w.contract.Arity(),
		CallSite: client,
		Inverted: w.inverted,
	})
	defer func() {
		app.rec.Final = app.state
		app.rec.Duration = w.opts.now().Sub(app.rec.Started)
		if app.blame != nil {
			app.rec.BlameID = app.blame.ID
		}
		app.trace.End(app.state, app.blame, err)
		if w.opts.history != nil {
			w.opts.history.Record(app.rec)
		}
	}()

	app.advance(StateCheckingArgs)
	if len(args) != w.contract.Arity() {
		app.skipFrom(w.contract, 1)
		b := w.newBlame(Position{Kind: PositionArity}, w.contract,
			fmt.Sprintf("%d arguments", w.contract.Arity()), len(args), client)
		return nil, w.violate(ctx, app, b)
	}

	checked := make([]any, len(args))
	for i, arg := range args {
		pos := Argument(i + 1)
		ctc := w.contract.args[i]
		out, b, cerr := w.cross(ctx, ctc, pos, arg, client)
		if cerr != nil {
			app.check(pos, ctc, OutcomeFailed)
			app.skipFrom(w.contract, i+2)
			app.advance(StateAborted)
			return nil, cerr
		}
		if b != nil {
			app.check(pos, ctc, OutcomeFailed)
			app.skipFrom(w.contract, i+2)
			return nil, w.violate(ctx, app, b)
		}
		app.check(pos, ctc, outcomeOf(ctc))
		checked[i] = out
	}

	app.advance(StateInvoking)
	// The body's own applications announce their own call sites.
	out, err := w.proc.Apply(WithCallSite(ctx, srcloc.Unknown), checked)
	if err != nil {
		app.rec.Result = OutcomeSkipped
		app.advance(StateAborted)
		return nil, err
	}

	app.advance(StateCheckingReturn)
	res, b, err := w.cross(ctx, w.contract.ret, Range, out, client)
	if err != nil {
		app.rec.Result = OutcomeFailed
		app.advance(StateAborted)
		return nil, err
	}
	if b != nil {
		app.rec.Result = OutcomeFailed
		return nil, w.violate(ctx, app, b)
	}
	app.rec.Result = outcomeOf(w.contract.ret)
	app.advance(StateDone)
	return res, nil
}

// cross moves v across the boundary at pos: flat contracts are checked
// now, function contracts wrap v for checking when it is applied.
func (w *Wrapped) cross(ctx context.Context, c Contract, pos Position, v any, client srcloc.Location) (any, *Blame, error) {
	switch ctc := c.(type) {
	case *Flat:
		ok, err := ctc.Check(ctx, v)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, w.newBlame(pos, ctc, ctc.Name(), v, client), nil
		}
		return v, nil, nil
	case *Function:
		proc, ok := v.(value.Procedure)
		if !ok || proc.Arity() != ctc.Arity() {
			return nil, w.newBlame(pos, ctc, procedureOfArity(ctc.Arity()), v, client), nil
		}
		return w.derive(proc, ctc, pos, client), nil, nil
	default:
		panic(fmt.Sprintf("contract: unknown contract type %T", c))
	}
}

// derive wraps a function-typed argument or result. Arguments flow from
// the client into the body, so their wrapper swaps the parties.
func (w *Wrapped) derive(proc value.Procedure, fn *Function, pos Position, client srcloc.Location) *Wrapped {
	d := &Wrapped{
		proc:      proc,
		contract:  fn,
		name:      proc.Name(),
		def:       w.def,
		call:      client,
		callFixed: w.callFixed,
		inverted:  w.inverted,
		opts:      w.opts,
	}
	if pos.Kind == PositionArgument {
		d.inverted = !w.inverted
		d.callFixed = true
	}
	if d.name == "" {
		d.name = fmt.Sprintf("%s of %s", pos, w.name)
	}
	return d
}

func (w *Wrapped) client(call srcloc.Location) srcloc.Location {
	if w.callFixed || !call.IsKnown() {
		return w.call
	}
	return call
}

// culprit is the party blamed for a failure at pos: the client for
// arguments, the provider for the range, swapped when inverted.
func (w *Wrapped) culprit(pos Position) Party {
	p := CallSite
	if pos.Kind == PositionRange {
		p = DefinitionSite
	}
	if w.inverted {
		p = p.Swap()
	}
	return p
}

func (w *Wrapped) newBlame(pos Position, violated Contract, expected string, actual any, client srcloc.Location) *Blame {
	culprit := w.culprit(pos)
	loc := w.def
	if culprit == CallSite {
		loc = client
	}
	return &Blame{
		ID:             w.opts.newID(),
		Culprit:        culprit,
		Position:       pos,
		Violated:       violated,
		Function:       w.contract,
		Expected:       expected,
		Actual:         actual,
		Location:       loc,
		DefinitionSite: w.def,
		CallSite:       client,
		Inverted:       w.inverted,
		Subject:        w.name,
		At:             w.opts.now(),
	}
}

func (w *Wrapped) violate(ctx context.Context, app *application, b *Blame) error {
	app.blame = b
	app.advance(StateViolated)
	return report(ctx, w.opts, b)
}

func report(ctx context.Context, o *options, b *Blame) error {
	o.logger.DebugContext(ctx, "contract violation",
		"blame_id", b.ID,
		"subject", b.Subject,
		"culprit", b.Culprit.String(),
		"position", b.Position.String(),
		"expected", b.Expected,
		"location", b.Location.String(),
	)
	for _, s := range o.sinks {
		s.Violation(ctx, b)
	}
	return &ViolationError{Blame: b}
}

func outcomeOf(c Contract) Outcome {
	if c.Kind() == KindFunction {
		return OutcomeDeferred
	}
	return OutcomePassed
}

func procedureOfArity(n int) string {
	return fmt.Sprintf("a procedure of arity %d", n)
}
