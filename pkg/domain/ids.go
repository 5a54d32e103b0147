// Package domain holds validated primitives shared across the wire packages.
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidInput marks a value rejected at a trust boundary.
var ErrInvalidInput = errors.New("invalid input")

// WireID identifies a wire transfer.
type WireID uuid.UUID

// NewWireID returns a fresh random wire id.
func NewWireID() WireID {
	return WireID(uuid.New())
}

func (id WireID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the id in canonical UUID form.
func (id WireID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID form. The nil UUID is accepted so
// zero values round-trip.
func (id *WireID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	*id = WireID(u)
	return nil
}

// IsNil reports whether id is the zero UUID.
func (id WireID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseWireID parses an id received from a message key, payload or CLI flag.
// Empty, malformed and nil UUIDs are rejected.
func ParseWireID(s string) (WireID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return WireID{}, fmt.Errorf("wire id: %w", err)
	}
	return WireID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", ErrInvalidInput)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: nil uuid", ErrInvalidInput)
	}
	return u, nil
}
