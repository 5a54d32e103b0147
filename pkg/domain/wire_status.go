package domain

import (
	"fmt"
	"strings"
)

// WireStatus is the lifecycle state of a wire.
// Invariant: the value must be one of the statuses below.
//
// Usage: construct via ParseWireStatus at trust boundaries; direct casting
// bypasses validation.
type WireStatus string

const (
	WireStatusPendingSignature      WireStatus = "pending_signature"
	WireStatusPendingApproval       WireStatus = "pending_approval"
	WireStatusPendingTransfer       WireStatus = "pending_transfer"
	WireStatusReceivedForProcessing WireStatus = "received_for_processing"
	WireStatusProcessed             WireStatus = "processed"
	WireStatusTransferFailed        WireStatus = "transfer_failed"
	WireStatusCancelled             WireStatus = "cancelled"
)

var validWireStatuses = map[WireStatus]bool{
	WireStatusPendingSignature:      true,
	WireStatusPendingApproval:       true,
	WireStatusPendingTransfer:       true,
	WireStatusReceivedForProcessing: true,
	WireStatusProcessed:             true,
	WireStatusTransferFailed:        true,
	WireStatusCancelled:             true,
}

// ParseWireStatus validates a status string. Matching ignores case.
func ParseWireStatus(s string) (WireStatus, error) {
	status := WireStatus(strings.ToLower(strings.TrimSpace(s)))
	if !validWireStatuses[status] {
		return "", fmt.Errorf("%w: unknown wire status %q", ErrInvalidInput, s)
	}
	return status, nil
}

// IsValid reports whether s is a supported status.
func (s WireStatus) IsValid() bool {
	return validWireStatuses[s]
}

// IsTerminal reports whether no further transitions are expected.
func (s WireStatus) IsTerminal() bool {
	return s == WireStatusProcessed || s == WireStatusTransferFailed || s == WireStatusCancelled
}

func (s WireStatus) String() string {
	return string(s)
}
