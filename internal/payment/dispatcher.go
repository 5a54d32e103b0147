// Package payment publishes payment requests for wires that are ready to
// transfer.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"wires/internal/messaging/envelope"
	"wires/internal/platform/kafka/producer"
	"wires/internal/platform/metrics"
	"wires/internal/wire/models"
)

const (
	// TypePaymentRequest is the CloudEvent type of published requests.
	TypePaymentRequest = "wires.payment.PaymentRequest"

	defaultSource = "/wires"
)

// Publisher writes records to Kafka.
type Publisher interface {
	Publish(ctx context.Context, records ...producer.Record) error
}

// Request is the JSON body of a payment request event.
type Request struct {
	WireID        string    `json:"wireId"`
	Type          string    `json:"type"`
	Purpose       string    `json:"purpose"`
	Department    string    `json:"department"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	EffectiveDate string    `json:"effectiveDate"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// Dispatcher sends payment requests to the execution system.
type Dispatcher struct {
	publisher Publisher
	topic     string
	source    string
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClock overrides the request timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithSource sets the CloudEvent source attribute.
func WithSource(source string) Option {
	return func(d *Dispatcher) {
		d.source = source
	}
}

// New creates a dispatcher publishing to topic.
func New(publisher Publisher, topic string, opts ...Option) (*Dispatcher, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("payment request topic is required")
	}
	d := &Dispatcher{
		publisher: publisher,
		topic:     topic,
		source:    defaultSource,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SendRequest publishes a structured-mode payment request keyed by wire id.
func (d *Dispatcher) SendRequest(ctx context.Context, wire *models.Wire) error {
	now := d.now()
	body := Request{
		WireID:        wire.ID.String(),
		Type:          wire.Type,
		Purpose:       wire.Purpose,
		Department:    wire.Department,
		Amount:        wire.Amount,
		Currency:      wire.Currency,
		EffectiveDate: wire.EffectiveDate.Format(time.DateOnly),
		RequestedAt:   now,
	}

	e := event.New()
	e.SetID(uuid.NewString())
	e.SetSource(d.source)
	e.SetType(TypePaymentRequest)
	e.SetSubject(wire.ID.String())
	e.SetTime(now)
	if err := e.SetData(event.ApplicationJSON, body); err != nil {
		d.metrics.IncrementPaymentRequest("error")
		return fmt.Errorf("encode payment request: %w", err)
	}

	key := []byte(wire.ID.String())
	msg, err := envelope.Structured(d.topic, key, e)
	if err != nil {
		d.metrics.IncrementPaymentRequest("error")
		return err
	}

	headers := make([]producer.Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = producer.Header{Key: h.Key, Value: h.Value}
	}
	if err := d.publisher.Publish(ctx, producer.Record{Topic: msg.Topic, Key: msg.Key, Value: msg.Value, Headers: headers}); err != nil {
		d.metrics.IncrementPaymentRequest("error")
		return fmt.Errorf("publish payment request for wire %s: %w", wire.ID, err)
	}

	d.metrics.IncrementPaymentRequest("ok")
	d.logger.InfoContext(ctx, "payment request sent",
		"wire_id", wire.ID,
		"event_id", e.ID(),
		"topic", d.topic,
	)
	return nil
}
