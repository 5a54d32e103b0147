package confluent

import (
	"errors"
	"fmt"
)

var (
	ErrMagicByte = errors.New("unknown magic byte")
	ErrTruncated = errors.New("payload truncated")
	ErrNotRecord = errors.New("root schema is not a record")
)

// DecodeError reports a payload that could not be decoded. It aborts the
// whole deserialization.
type DecodeError struct {
	SchemaID int
	Path     string
	Err      error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("decode schema %d at %s: %v", e.SchemaID, e.Path, e.Err)
	case e.SchemaID > 0:
		return fmt.Sprintf("decode schema %d: %v", e.SchemaID, e.Err)
	default:
		return fmt.Sprintf("decode: %v", e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }
