// Package deserializer turns CloudEvent records carrying Confluent-framed Avro
// payloads into instances of registered Go types.
package deserializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wires/internal/messaging/confluent"
	"wires/internal/messaging/envelope"
	"wires/internal/messaging/generic"
	"wires/internal/messaging/metrics"
	"wires/internal/messaging/translate"
	"wires/internal/messaging/typeregistry"
)

// Error classes surfaced by Deserialize. Envelope errors never reach the
// caller; they turn into a nil result.
type (
	EnvelopeError    = envelope.Error
	DecodeError      = confluent.DecodeError
	UnknownTypeError = typeregistry.UnknownTypeError
	Diagnostic       = translate.Diagnostic
)

//go:generate mockgen -source=deserializer.go -destination=mocks/mocks.go -package=mocks

// PayloadDecoder decodes an envelope payload into a generic record.
type PayloadDecoder interface {
	Decode(ctx context.Context, payload []byte) (*generic.Record, error)
}

// Result is a successfully constructed object plus the fields that were
// dropped on the way.
type Result struct {
	Value       any
	TypeName    string
	EventID     string
	Subject     string
	Diagnostics []Diagnostic
}

// Complete reports whether every non-null source field was assigned.
func (r *Result) Complete() bool {
	return len(r.Diagnostics) == 0
}

// As returns the result value as *T.
func As[T any](r *Result) (*T, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.Value.(*T)
	return v, ok
}

// Deserializer runs envelope unwrap, payload decode, type resolution and
// translation for one record at a time. It holds no per-call state.
type Deserializer struct {
	decoder    PayloadDecoder
	types      translate.Resolver
	translator *translate.Translator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Deserializer.
type Option func(*Deserializer)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Deserializer) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Deserializer) {
		d.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Deserializer) {
		d.tracer = tracer
	}
}

// New creates a Deserializer.
func New(decoder PayloadDecoder, types translate.Resolver, opts ...Option) (*Deserializer, error) {
	if decoder == nil {
		return nil, fmt.Errorf("payload decoder is required")
	}
	if types == nil {
		return nil, fmt.Errorf("type registry is required")
	}
	d := &Deserializer{
		decoder:    decoder,
		types:      types,
		translator: translate.New(types),
		logger:     slog.Default(),
		tracer:     otel.Tracer("wires/internal/messaging/deserializer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Deserialize builds the object carried by msg. It returns (nil, nil) when the
// event has no data content type or no data, a *DecodeError for undecodable
// content and an *UnknownTypeError when the event type is not registered.
// Fields that could not be assigned are listed in Result.Diagnostics.
func (d *Deserializer) Deserialize(ctx context.Context, msg envelope.Message) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, "deserializer.Deserialize", trace.WithAttributes(
		attribute.String("messaging.destination", msg.Topic),
	))
	defer span.End()

	start := time.Now()
	defer func() { d.metrics.ObserveDeserialize(time.Since(start)) }()

	env, err := envelope.Unwrap(msg)
	if err != nil {
		var envErr *envelope.Error
		if errors.As(err, &envErr) {
			d.logger.DebugContext(ctx, "skipping event without payload",
				"event_id", envErr.ID,
				"type", envErr.Type,
				"reason", envErr.Err,
			)
			d.metrics.IncrementOutcome(envErr.Type, "skipped")
			return nil, nil
		}
		return nil, d.fail(ctx, span, "", "decode_error", &DecodeError{Err: err})
	}
	span.SetAttributes(
		attribute.String("cloudevents.type", env.Type),
		attribute.String("cloudevents.id", env.ID),
	)

	rec, err := d.decoder.Decode(ctx, env.Payload)
	if err != nil {
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			err = &DecodeError{Err: err}
		}
		return nil, d.fail(ctx, span, env.Type, "decode_error", err)
	}

	desc, err := d.types.Resolve(env.Type)
	if err != nil {
		return nil, d.fail(ctx, span, env.Type, "unknown_type", err)
	}

	value, diags, err := d.translator.Translate(rec, desc)
	if err != nil {
		return nil, d.fail(ctx, span, env.Type, "error", err)
	}

	for _, diag := range diags {
		d.metrics.IncrementDropped(diag.Type, string(diag.Reason))
		d.logger.WarnContext(ctx, "dropped field",
			"event_id", env.ID,
			"type", env.Type,
			"path", diag.Path,
			"target", diag.Type,
			"reason", diag.Reason,
			"error", diag.Err,
		)
	}
	span.SetAttributes(attribute.Int("deserializer.dropped_fields", len(diags)))
	d.metrics.IncrementOutcome(env.Type, "ok")

	return &Result{
		Value:       value,
		TypeName:    env.Type,
		EventID:     env.ID,
		Subject:     env.Subject,
		Diagnostics: diags,
	}, nil
}

func (d *Deserializer) fail(ctx context.Context, span trace.Span, eventType, outcome string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	d.metrics.IncrementOutcome(eventType, outcome)
	d.logger.DebugContext(ctx, "deserialize failed", "type", eventType, "outcome", outcome, "error", err)
	return err
}
