package models

import (
	"fmt"

	"wires/internal/messaging/typeregistry"
	"wires/pkg/domain"
)

// CloudEvent types of the consumed status messages.
const (
	TypePaymentResponse = "wires.execution.PaymentResponse"
	TypeSignatureStatus = "wires.acl.SignatureStatus"
)

// Payment execution statuses reported in PaymentResponse.Status.
const (
	PaymentPending    = "PENDING"
	PaymentProcessed  = "PROCESSED"
	PaymentFailed     = "FAILED"
	PaymentError      = "ERROR"
	PaymentBadRequest = "BAD_REQUEST"
)

// PaymentResponse is the execution system's status report for a wire.
// Initiator["id"] carries the wire id.
type PaymentResponse struct {
	Initiator          map[string]string
	Status             string
	FedReferenceNumber string
	MechanismType      string
}

// WireID extracts the wire id from the initiator map.
func (p *PaymentResponse) WireID() (domain.WireID, error) {
	id, ok := p.Initiator["id"]
	if !ok {
		return domain.WireID{}, fmt.Errorf("%w: payment response has no initiator id", domain.ErrInvalidInput)
	}
	return domain.ParseWireID(id)
}

// SignatureStatus reports the outcome of a signing ceremony. The wire id
// travels as the record key or event subject.
type SignatureStatus struct {
	Status     string
	ModeOfSign string
}

// Avro schemas of the consumed messages, as registered by the producers.
const (
	PaymentResponseSchema = `{
  "type": "record",
  "name": "PaymentResponse",
  "namespace": "wires.execution",
  "fields": [
    {"name": "initiator", "type": {"type": "map", "values": "string"}},
    {"name": "status", "type": "string"},
    {"name": "fedReferenceNumber", "type": ["null", "string"], "default": null},
    {"name": "mechanismType", "type": ["null", "string"], "default": null}
  ]
}`

	SignatureStatusSchema = `{
  "type": "record",
  "name": "SignatureStatus",
  "namespace": "wires.acl",
  "fields": [
    {"name": "status", "type": "string"},
    {"name": "modeOfSign", "type": ["null", "string"], "default": null}
  ]
}`
)

// RegisterMessages registers the consumed message types.
func RegisterMessages(reg *typeregistry.Registry) error {
	if err := reg.Register(&PaymentResponse{}, TypePaymentResponse); err != nil {
		return fmt.Errorf("register payment response: %w", err)
	}
	if err := reg.Register(&SignatureStatus{}, TypeSignatureStatus); err != nil {
		return fmt.Errorf("register signature status: %w", err)
	}
	return nil
}
