package contract

import (
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/hoc/pkg/value"
)

var (
	// ErrViolation matches every *ViolationError.
	ErrViolation = errors.New("contract violation")
	// ErrPredicateFailure matches every *PredicateFailure.
	ErrPredicateFailure = errors.New("predicate failure")
	// ErrArityMismatch is the kind of a WellFormednessError raised when a
	// function contract is attached to a procedure of a different arity.
	ErrArityMismatch = errors.New("arity mismatch")
	// ErrMalformed is the kind of a WellFormednessError raised for an
	// ill-formed contract tree.
	ErrMalformed = errors.New("malformed contract")
)

// ViolationError is returned when a check fails. It carries the Blame.
type ViolationError struct {
	Blame *Blame
}

func (e *ViolationError) Error() string {
	return e.Blame.Summary()
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrViolation
}

// BlameOf extracts the Blame from a violation anywhere in err's chain.
func BlameOf(err error) (*Blame, bool) {
	var ve *ViolationError
	if errors.As(err, &ve) && ve.Blame != nil {
		return ve.Blame, true
	}
	return nil, false
}

// WellFormednessError is raised while building a contract or attaching one
// to a procedure. It is never raised in the middle of an application.
type WellFormednessError struct {
	Kind    error
	Subject string
	Detail  string
}

func (e *WellFormednessError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %v: %s", e.Subject, e.Kind, e.Detail)
}

func (e *WellFormednessError) Unwrap() error {
	return e.Kind
}

// PredicateFailure reports a predicate that raised an error instead of
// answering. It is not a contract violation.
type PredicateFailure struct {
	Predicate string
	Value     any
	Err       error
}

func (e *PredicateFailure) Error() string {
	return fmt.Sprintf("predicate %s failed on %s: %v", e.Predicate, value.Format(e.Value), e.Err)
}

func (e *PredicateFailure) Unwrap() []error {
	return []error{ErrPredicateFailure, e.Err}
}
