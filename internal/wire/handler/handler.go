// Package handler consumes payment and signature status topics.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wires/internal/messaging/deserializer"
	"wires/internal/messaging/envelope"
	"wires/internal/platform/kafka/consumer"
	"wires/internal/platform/metrics"
	"wires/internal/wire/models"
	"wires/pkg/domain"
	"wires/pkg/platform/sentinel"
)

// Deserializer turns a record into a registered Go type.
type Deserializer interface {
	Deserialize(ctx context.Context, msg envelope.Message) (*deserializer.Result, error)
}

// StatusService applies status messages to wires.
type StatusService interface {
	ApplyPaymentStatus(ctx context.Context, resp *models.PaymentResponse) (*models.Wire, error)
	ApplySignatureStatus(ctx context.Context, id domain.WireID, st *models.SignatureStatus) (*models.Wire, error)
}

type base struct {
	deser   Deserializer
	service StatusService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a handler.
type Option func(*base)

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

func newBase(deser Deserializer, service StatusService, opts []Option) base {
	b := base{deser: deser, service: service, logger: slog.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// deserialize returns the record's result, or nil when the record should be
// committed without further processing. Errors that a later attempt can
// succeed past, such as an unreachable schema registry, are returned so the
// record is redelivered.
func (b *base) deserialize(ctx context.Context, source string, msg *consumer.Message) (*deserializer.Result, error) {
	res, err := b.deser.Deserialize(ctx, toEnvelope(msg))
	if err != nil {
		if retryable(err) {
			b.metrics.IncrementStatusUpdateFailure(source, "unavailable")
			return nil, fmt.Errorf("deserialize %s record: %w", source, err)
		}
		reason := "decode_error"
		var unknown *deserializer.UnknownTypeError
		if errors.As(err, &unknown) {
			reason = "unknown_type"
		}
		b.logger.ErrorContext(ctx, "failed to deserialize status message",
			"key", string(msg.Key),
			"reason", reason,
			"error", err,
		)
		b.metrics.IncrementStatusUpdateFailure(source, reason)
		return nil, nil
	}
	if res == nil {
		b.metrics.IncrementStatusUpdateFailure(source, "no_payload")
		return nil, nil
	}
	return res, nil
}

func retryable(err error) bool {
	return errors.Is(err, sentinel.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// settle decides whether an apply error is redelivered. Missing wires and bad
// input will never succeed, so they are logged and committed.
func (b *base) settle(ctx context.Context, res *deserializer.Result, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, sentinel.ErrConflict) {
		b.logger.WarnContext(ctx, "status message not applied",
			"event_id", res.EventID,
			"type", res.TypeName,
			"error", err,
		)
		return nil
	}
	return fmt.Errorf("apply %s: %w", res.TypeName, err)
}

// PaymentStatusHandler applies PaymentResponse records.
type PaymentStatusHandler struct {
	base
}

// NewPaymentStatusHandler creates a payment status handler.
func NewPaymentStatusHandler(deser Deserializer, service StatusService, opts ...Option) *PaymentStatusHandler {
	return &PaymentStatusHandler{base: newBase(deser, service, opts)}
}

func (h *PaymentStatusHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	res, err := h.deserialize(ctx, "payment", msg)
	if res == nil {
		return err
	}
	resp, ok := deserializer.As[models.PaymentResponse](res)
	if !ok {
		h.logger.ErrorContext(ctx, "unexpected message type on payment status topic",
			"event_id", res.EventID,
			"type", res.TypeName,
		)
		h.metrics.IncrementStatusUpdateFailure("payment", "unexpected_type")
		return nil
	}
	_, err = h.service.ApplyPaymentStatus(ctx, resp)
	return h.settle(ctx, res, err)
}

// SignatureStatusHandler applies SignatureStatus records. The wire id is
// taken from the event subject, falling back to the record key.
type SignatureStatusHandler struct {
	base
}

// NewSignatureStatusHandler creates a signature status handler.
func NewSignatureStatusHandler(deser Deserializer, service StatusService, opts ...Option) *SignatureStatusHandler {
	return &SignatureStatusHandler{base: newBase(deser, service, opts)}
}

func (h *SignatureStatusHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	res, err := h.deserialize(ctx, "signature", msg)
	if res == nil {
		return err
	}
	st, ok := deserializer.As[models.SignatureStatus](res)
	if !ok {
		h.logger.ErrorContext(ctx, "unexpected message type on signature topic",
			"event_id", res.EventID,
			"type", res.TypeName,
		)
		h.metrics.IncrementStatusUpdateFailure("signature", "unexpected_type")
		return nil
	}

	raw := res.Subject
	if raw == "" {
		raw = string(msg.Key)
	}
	id, err := domain.ParseWireID(raw)
	if err != nil {
		h.metrics.IncrementStatusUpdateFailure("signature", "invalid_id")
		return h.settle(ctx, res, err)
	}
	_, err = h.service.ApplySignatureStatus(ctx, id, st)
	return h.settle(ctx, res, err)
}

func toEnvelope(msg *consumer.Message) envelope.Message {
	headers := make([]envelope.Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = envelope.Header{Key: h.Key, Value: h.Value}
	}
	return envelope.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}

// FromEnvelope converts an envelope message to a consumed message.
func FromEnvelope(msg envelope.Message) *consumer.Message {
	headers := make([]consumer.Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = consumer.Header{Key: h.Key, Value: h.Value}
	}
	return &consumer.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}
