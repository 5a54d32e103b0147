package translate

import (
	"errors"
	"fmt"
)

// DropReason says why a field was left unassigned.
type DropReason string

const (
	ReasonNoMutator       DropReason = "no_mutator"
	ReasonShapeMismatch   DropReason = "shape_mismatch"
	ReasonMutatorRejected DropReason = "mutator_rejected"
	ReasonMutatorFailed   DropReason = "mutator_failed"
	ReasonUnknownType     DropReason = "unknown_type"
	ReasonConstructFailed DropReason = "construct_failed"
)

// Diagnostic records one dropped field. Dropping never aborts translation.
type Diagnostic struct {
	// Path locates the field from the root record, e.g. "lines[2].amount".
	Path   string
	Field  string
	Type   string
	Reason DropReason
	Err    error
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s: %s on %s: %v", d.Path, d.Reason, d.Type, d.Err)
	}
	return fmt.Sprintf("%s: %s on %s", d.Path, d.Reason, d.Type)
}

// rootCause unwraps err down to the innermost error of its chain.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// ConstructError is returned when the root target cannot be constructed.
type ConstructError struct {
	Type string
	Err  error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("construct %s: %v", e.Type, e.Err)
}

func (e *ConstructError) Unwrap() error { return e.Err }
