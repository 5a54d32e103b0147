package typeregistry

import (
	"errors"
	"fmt"

	"wires/pkg/platform/sentinel"
)

var (
	// ErrUnknownType matches any UnknownTypeError.
	ErrUnknownType = errors.New("unknown type")
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("type already registered")
	// ErrInvalidPrototype is returned for prototypes that are not pointers to structs.
	ErrInvalidPrototype = errors.New("prototype must be a pointer to a struct")
)

// UnknownTypeError reports a type name with no registered descriptor.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("type %q is not registered", e.Name)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

func (e *UnknownTypeError) Unwrap() error {
	return sentinel.ErrNotFound
}

// PanicError is returned when a mutator or a registered constructor panicked.
// Func names the mutator, or "constructor of <type>".
type PanicError struct {
	Func  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Func, e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
