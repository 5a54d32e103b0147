// Package wiretest encodes status messages the way the upstream producers
// do, for handler tests, the e2e suite and local tooling.
package wiretest

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
	"github.com/hamba/avro/v2"

	"wires/internal/messaging/confluent"
	"wires/internal/messaging/envelope"
	"wires/internal/messaging/schemaregistry"
	"wires/internal/wire/models"
	"wires/pkg/domain"
)

// ContentTypeAvro is the data content type of Confluent-framed payloads.
const ContentTypeAvro = "application/avro"

type paymentResponse struct {
	Initiator          map[string]string `avro:"initiator"`
	Status             string            `avro:"status"`
	FedReferenceNumber *string           `avro:"fedReferenceNumber"`
	MechanismType      *string           `avro:"mechanismType"`
}

type signatureStatus struct {
	Status     string  `avro:"status"`
	ModeOfSign *string `avro:"modeOfSign"`
}

// SchemaRegistrar stores a schema and returns its id.
type SchemaRegistrar interface {
	Register(ctx context.Context, subject string, schema avro.Schema) (int, error)
}

// Kit holds the registered schemas used to encode messages.
type Kit struct {
	payment     avro.Schema
	paymentID   int
	signature   avro.Schema
	signatureID int
}

// NewKit registers both status schemas in an in-memory registry.
func NewKit(schemas *schemaregistry.Memory) (*Kit, error) {
	paymentID, err := schemas.Register(models.PaymentResponseSchema)
	if err != nil {
		return nil, err
	}
	signatureID, err := schemas.Register(models.SignatureStatusSchema)
	if err != nil {
		return nil, err
	}
	return newKit(paymentID, signatureID)
}

// NewRemoteKit registers both status schemas with a schema registry.
func NewRemoteKit(ctx context.Context, reg SchemaRegistrar) (*Kit, error) {
	k, err := newKit(0, 0)
	if err != nil {
		return nil, err
	}
	if k.paymentID, err = reg.Register(ctx, "payment-status-value", k.payment); err != nil {
		return nil, fmt.Errorf("register payment response schema: %w", err)
	}
	if k.signatureID, err = reg.Register(ctx, "signature-status-value", k.signature); err != nil {
		return nil, fmt.Errorf("register signature status schema: %w", err)
	}
	return k, nil
}

func newKit(paymentID, signatureID int) (*Kit, error) {
	payment, err := avro.Parse(models.PaymentResponseSchema)
	if err != nil {
		return nil, err
	}
	signature, err := avro.Parse(models.SignatureStatusSchema)
	if err != nil {
		return nil, err
	}
	return &Kit{payment: payment, paymentID: paymentID, signature: signature, signatureID: signatureID}, nil
}

// PaymentStatus builds a structured-mode payment status record for id.
func (k *Kit) PaymentStatus(topic string, id domain.WireID, status, fedRef string) (envelope.Message, error) {
	mechanism := "WIRE"
	body := paymentResponse{
		Initiator:     map[string]string{"id": id.String()},
		Status:        strings.ToUpper(status),
		MechanismType: &mechanism,
	}
	if fedRef != "" {
		body.FedReferenceNumber = &fedRef
	}
	payload, err := confluent.Marshal(k.payment, k.paymentID, body)
	if err != nil {
		return envelope.Message{}, err
	}
	return structured(topic, id, models.TypePaymentResponse, payload)
}

// SignatureStatus builds a binary-mode signature status record keyed by id.
func (k *Kit) SignatureStatus(topic string, id domain.WireID, status, modeOfSign string) (envelope.Message, error) {
	body := signatureStatus{Status: status}
	if modeOfSign != "" {
		body.ModeOfSign = &modeOfSign
	}
	payload, err := confluent.Marshal(k.signature, k.signatureID, body)
	if err != nil {
		return envelope.Message{}, err
	}
	e, err := newEvent(id, models.TypeSignatureStatus, payload)
	if err != nil {
		return envelope.Message{}, err
	}
	return envelope.Binary(topic, []byte(id.String()), e), nil
}

func structured(topic string, id domain.WireID, eventType string, payload []byte) (envelope.Message, error) {
	e, err := newEvent(id, eventType, payload)
	if err != nil {
		return envelope.Message{}, err
	}
	return envelope.Structured(topic, []byte(id.String()), e)
}

func newEvent(id domain.WireID, eventType string, payload []byte) (event.Event, error) {
	e := event.New()
	e.SetID(uuid.NewString())
	e.SetSource("/wires/tests")
	e.SetType(eventType)
	e.SetSubject(id.String())
	if err := e.SetData(ContentTypeAvro, payload); err != nil {
		return event.Event{}, err
	}
	return e, nil
}
