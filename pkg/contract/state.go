package contract

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
)

// State is the phase of a single application of a contracted procedure.
type State uint8

const (
	StatePending State = iota + 1
	StateCheckingArgs
	StateInvoking
	StateCheckingReturn
	StateDone
	// StateViolated is terminal: a check failed.
	StateViolated
	// StateAborted is terminal: a predicate or the underlying procedure
	// raised a host error.
	StateAborted
)

var stateNames = map[State]string{
	StatePending:        "pending",
	StateCheckingArgs:   "checking-args",
	StateInvoking:       "invoking",
	StateCheckingReturn: "checking-return",
	StateDone:           "done",
	StateViolated:       "violated",
	StateAborted:        "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateViolated || s == StateAborted
}

var transitions = map[State][]State{
	StatePending:        {StateCheckingArgs},
	StateCheckingArgs:   {StateInvoking, StateViolated, StateAborted},
	StateInvoking:       {StateCheckingReturn, StateAborted},
	StateCheckingReturn: {StateDone, StateViolated, StateAborted},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplicationInfo describes an application to an Observer.
type ApplicationInfo struct {
	ID       string
	Subject  string
	Arity    int
	CallSite srcloc.Location
	Inverted bool
}

// Observer is notified of every application of a contracted procedure.
// The returned context is passed to predicates and to the underlying
// procedure.
type Observer interface {
	BeginApplication(ctx context.Context, info ApplicationInfo) (context.Context, ApplicationTrace)
}

// ApplicationTrace receives the state transitions of one application.
type ApplicationTrace interface {
	Transition(from, to State)
	End(final State, blame *Blame, err error)
}

type nopObserver struct{}

func (nopObserver) BeginApplication(ctx context.Context, _ ApplicationInfo) (context.Context, ApplicationTrace) {
	return ctx, nopTrace{}
}

type nopTrace struct{}

func (nopTrace) Transition(State, State)   {}
func (nopTrace) End(State, *Blame, error) {}
