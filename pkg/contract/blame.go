package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// Party is the side of a contract boundary that a Blame names.
type Party uint8

const (
	// CallSite is the party that applied the contracted procedure.
	CallSite Party = iota + 1
	// DefinitionSite is the party that defined the contracted procedure.
	DefinitionSite
)

func (p Party) String() string {
	switch p {
	case CallSite:
		return "call site"
	case DefinitionSite:
		return "definition site"
	default:
		return "unknown party"
	}
}

// Swap returns the other party.
func (p Party) Swap() Party {
	if p == CallSite {
		return DefinitionSite
	}
	return CallSite
}

// PositionKind is the kind of place inside a contract where a check failed.
type PositionKind uint8

const (
	PositionArgument PositionKind = iota + 1
	PositionRange
	// PositionArity is used when a procedure is applied to the wrong
	// number of arguments.
	PositionArity
	// PositionValue is a flat contract attached directly to a value.
	PositionValue
)

// Position locates a check within a function contract.
type Position struct {
	Kind  PositionKind `json:"kind"`
	Index int          `json:"index,omitempty"` // 1-based, arguments only
}

// Argument is the position of the i-th argument, counting from 1.
func Argument(i int) Position { return Position{Kind: PositionArgument, Index: i} }

// Range is the position of a procedure's result.
var Range = Position{Kind: PositionRange}

func (p Position) String() string {
	switch p.Kind {
	case PositionArgument:
		return "the " + ordinal(p.Index) + " argument"
	case PositionRange:
		return "the range"
	case PositionArity:
		return "the arity"
	case PositionValue:
		return "the value"
	default:
		return "an unknown position"
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// Blame attributes one failed check to one party. It is created at the
// moment the check fails and never modified afterwards.
type Blame struct {
	ID       string
	Culprit  Party
	Position Position
	// Violated is the contract that failed: a flat leaf, or the function
	// contract a non-procedure was supplied for.
	Violated Contract
	// Function is the function contract whose position failed. Nil for
	// contracts attached directly to a value.
	Function *Function
	Expected string
	Actual   any
	// Location is the location of the culprit.
	Location       srcloc.Location
	DefinitionSite srcloc.Location
	CallSite       srcloc.Location
	// Inverted is set when the failing wrapper was created for a
	// function-typed argument, so its parties are swapped.
	Inverted bool
	Subject  string
	At       time.Time
}

// SelfInflicted reports whether the contracted value broke its own
// promise (a range failure) rather than being given bad input.
func (b *Blame) SelfInflicted() bool {
	return b.Position.Kind == PositionRange || b.Position.Kind == PositionValue
}

// Summary is a one-line description used as the error message.
func (b *Blame) Summary() string {
	verb := "contract violation"
	if b.SelfInflicted() {
		verb = "broke its own contract"
	}
	return fmt.Sprintf("%s: %s: expected %s, given %s in %s; blaming %s %s",
		b.subject(), verb, b.Expected, value.Format(b.Actual), b.Position, b.Culprit, b.Location)
}

// Report renders the multi-line, human-readable violation report.
func (b *Blame) Report() string {
	var sb strings.Builder
	if b.SelfInflicted() {
		fmt.Fprintf(&sb, "%s: broke its own contract\n", b.subject())
		fmt.Fprintf(&sb, "  promised: %s\n", b.Expected)
		fmt.Fprintf(&sb, "  produced: %s\n", value.Format(b.Actual))
	} else {
		fmt.Fprintf(&sb, "%s: contract violation\n", b.subject())
		fmt.Fprintf(&sb, "  expected: %s\n", b.Expected)
		fmt.Fprintf(&sb, "  given: %s\n", value.Format(b.Actual))
	}
	if b.Function != nil {
		fmt.Fprintf(&sb, "  in: %s of\n", b.Position)
		fmt.Fprintf(&sb, "      %s\n", b.Function)
	} else if b.Violated != nil {
		fmt.Fprintf(&sb, "  in: %s\n", b.Violated)
	}
	fmt.Fprintf(&sb, "  contract from: %s\n", b.DefinitionSite)
	if b.Inverted {
		// The checked procedure came from the client, which now provides it.
		fmt.Fprintf(&sb, "  procedure from: %s\n", b.CallSite)
	}
	fmt.Fprintf(&sb, "  blaming: %s %s\n", b.Culprit, b.Location)
	sb.WriteString("   (assuming the contract is correct)\n")
	if b.CallSite.IsKnown() {
		fmt.Fprintf(&sb, "  at: %s\n", b.CallSite)
	}
	return sb.String()
}

func (b *Blame) subject() string {
	if b.Subject == "" {
		return "anonymous procedure"
	}
	return b.Subject
}

// Snapshot is a serialisable rendering of a Blame.
type Snapshot struct {
	ID             string          `json:"id"`
	Subject        string          `json:"subject"`
	Culprit        string          `json:"culprit"`
	Position       string          `json:"position"`
	Contract       string          `json:"contract"`
	Expected       string          `json:"expected"`
	Actual         string          `json:"actual"`
	Location       srcloc.Location `json:"location"`
	DefinitionSite srcloc.Location `json:"definition_site"`
	CallSite       srcloc.Location `json:"call_site"`
	Inverted       bool            `json:"inverted"`
	At             time.Time       `json:"at"`
}

// Snapshot returns the serialisable form of b.
func (b *Blame) Snapshot() Snapshot {
	s := Snapshot{
		ID:             b.ID,
		Subject:        b.Subject,
		Culprit:        b.Culprit.String(),
		Position:       b.Position.String(),
		Expected:       b.Expected,
		Actual:         value.Format(b.Actual),
		Location:       b.Location,
		DefinitionSite: b.DefinitionSite,
		CallSite:       b.CallSite,
		Inverted:       b.Inverted,
		At:             b.At,
	}
	switch {
	case b.Function != nil:
		s.Contract = b.Function.String()
	case b.Violated != nil:
		s.Contract = b.Violated.String()
	}
	return s
}
