package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseWireID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseWireID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseWireID("")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseWireID("not-a-uuid")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseWireID(uuid.Nil.String())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseWireID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, WireID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
		assert.False(t, id.IsNil())
	})
}

// TestParseID_BoundaryInputs validates parsing of hostile message keys.
func TestParseID_BoundaryInputs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE wires;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},

		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWireID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseWireStatus(t *testing.T) {
	t.Run("normalises case and whitespace", func(t *testing.T) {
		status, err := ParseWireStatus("  Pending_Transfer ")
		require.NoError(t, err)
		assert.Equal(t, WireStatusPendingTransfer, status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseWireStatus("on_hold")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("terminal states", func(t *testing.T) {
		assert.True(t, WireStatusProcessed.IsTerminal())
		assert.True(t, WireStatusTransferFailed.IsTerminal())
		assert.False(t, WireStatusPendingTransfer.IsTerminal())
	})
}

func TestWireID_TextRoundTrip(t *testing.T) {
	id := NewWireID()
	b, err := id.MarshalText()
	require.NoError(t, err)

	var got WireID
	require.NoError(t, got.UnmarshalText(b))
	assert.Equal(t, id, got)

	assert.ErrorIs(t, got.UnmarshalText([]byte("nope")), ErrInvalidInput)
}
