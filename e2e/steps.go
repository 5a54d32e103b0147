package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cucumber/godog"

	"wires/e2e/steps/doddfrank"
	"wires/e2e/steps/wire"
	"wires/internal/compliance"
	"wires/internal/messaging/confluent"
	"wires/internal/messaging/deserializer"
	"wires/internal/messaging/envelope"
	"wires/internal/messaging/schemaregistry"
	"wires/internal/messaging/typeregistry"
	"wires/internal/payment"
	"wires/internal/platform/kafka/consumer"
	"wires/internal/platform/kafka/producer"
	"wires/internal/wire/handler"
	"wires/internal/wire/models"
	"wires/internal/wire/service"
	"wires/internal/wire/store"
	"wires/internal/wire/wiretest"
	"wires/pkg/domain"
)

const (
	paymentStatusTopic   = "payment-status"
	signatureStatusTopic = "signature-status"
	paymentRequestTopic  = "payment-requests"
	zoneName             = "America/New_York"
)

// Now is the frozen clock every scenario runs at.
var Now = time.Date(2024, time.August, 20, 15, 0, 0, 0, time.UTC)

// TestContext runs the status pipeline in process: records go through the
// topic router, the handlers and the service into an in-memory store.
type TestContext struct {
	zone    *time.Location
	kit     *wiretest.Kit
	store   *store.InMemory
	router  *consumer.Router
	job     *compliance.Job
	outbox  *outbox
	wires   map[string]domain.WireID
	lastErr error
}

// NewTestContext builds a fresh pipeline for one scenario.
func NewTestContext() (*TestContext, error) {
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return Now }

	schemas := schemaregistry.NewMemory()
	kit, err := wiretest.NewKit(schemas)
	if err != nil {
		return nil, err
	}
	types := typeregistry.New()
	if err := models.RegisterMessages(types); err != nil {
		return nil, err
	}
	deser, err := deserializer.New(confluent.NewDecoder(schemas), types, deserializer.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	st := store.NewInMemory()
	svc, err := service.New(st,
		service.WithClock(clock),
		service.WithLocation(zone),
		service.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	router := consumer.NewRouter(logger, nil)
	router.Register(paymentStatusTopic, handler.NewPaymentStatusHandler(deser, svc, handler.WithLogger(logger)))
	router.Register(signatureStatusTopic, handler.NewSignatureStatusHandler(deser, svc, handler.WithLogger(logger)))

	out := &outbox{}
	dispatcher, err := payment.New(out, paymentRequestTopic, payment.WithClock(clock), payment.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	job, err := compliance.NewJob(st, dispatcher, compliance.WithClock(clock), compliance.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &TestContext{
		zone:   zone,
		kit:    kit,
		store:  st,
		router: router,
		job:    job,
		outbox: out,
		wires:  make(map[string]domain.WireID),
	}, nil
}

// SeedWire stores a new wire under name. A non-nil windowEnd makes it an
// international wire inside its Dodd-Frank cancellation window.
func (tc *TestContext) SeedWire(ctx context.Context, name string, status domain.WireStatus, windowEnd *time.Time) error {
	w := &models.Wire{
		ID:       domain.NewWireID(),
		Status:   status,
		Type:     "domestic",
		Purpose:  "invoice",
		Amount:   125_000,
		Currency: "USD",
	}
	if windowEnd != nil {
		w.Type = "international"
		w.International = &models.InternationalWire{
			BeneficiaryCountry: "MX",
			DoddFrank: &models.DoddFrank{
				InCancellationWindow:  true,
				CancellationWindowEnd: *windowEnd,
			},
		}
	}
	if err := tc.store.Save(ctx, w); err != nil {
		return err
	}
	tc.wires[name] = w.ID
	return nil
}

// WireID returns the id of a seeded wire.
func (tc *TestContext) WireID(name string) (domain.WireID, error) {
	id, ok := tc.wires[name]
	if !ok {
		return domain.WireID{}, fmt.Errorf("no wire named %q in this scenario", name)
	}
	return id, nil
}

// Wire loads the current state of a seeded wire.
func (tc *TestContext) Wire(ctx context.Context, name string) (*models.Wire, error) {
	id, err := tc.WireID(name)
	if err != nil {
		return nil, err
	}
	return tc.store.FindByID(ctx, id)
}

// DeliverPaymentStatus routes a payment status record for id.
func (tc *TestContext) DeliverPaymentStatus(ctx context.Context, id domain.WireID, status, fedRef string) error {
	msg, err := tc.kit.PaymentStatus(paymentStatusTopic, id, status, fedRef)
	if err != nil {
		return err
	}
	tc.lastErr = tc.router.Handle(ctx, handler.FromEnvelope(msg))
	return nil
}

// DeliverSignatureStatus routes a signature status record for id.
func (tc *TestContext) DeliverSignatureStatus(ctx context.Context, id domain.WireID, status, modeOfSign string) error {
	msg, err := tc.kit.SignatureStatus(signatureStatusTopic, id, status, modeOfSign)
	if err != nil {
		return err
	}
	tc.lastErr = tc.router.Handle(ctx, handler.FromEnvelope(msg))
	return nil
}

// LastDeliveryError is what the router returned for the last record; nil
// means the consumer would commit it.
func (tc *TestContext) LastDeliveryError() error {
	return tc.lastErr
}

// RunDoddFrank runs one pass of the cancellation window job.
func (tc *TestContext) RunDoddFrank(ctx context.Context) error {
	return tc.job.Run(ctx)
}

// PaymentRequests decodes every payment request published so far.
func (tc *TestContext) PaymentRequests() ([]payment.Request, error) {
	return tc.outbox.requests()
}

// Now returns the scenario clock.
func (tc *TestContext) Now() time.Time {
	return Now
}

// Today returns midnight of the scenario date in the business zone.
func (tc *TestContext) Today() time.Time {
	local := Now.In(tc.zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tc.zone)
}

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	wire.RegisterSteps(ctx, tc)
	doddfrank.RegisterSteps(ctx, tc)
}

// outbox captures records instead of producing them to Kafka.
type outbox struct {
	mu      sync.Mutex
	records []producer.Record
}

func (o *outbox) Publish(_ context.Context, records ...producer.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, records...)
	return nil
}

func (o *outbox) requests() ([]payment.Request, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]payment.Request, 0, len(o.records))
	for _, rec := range o.records {
		headers := make([]envelope.Header, len(rec.Headers))
		for i, h := range rec.Headers {
			headers[i] = envelope.Header{Key: h.Key, Value: h.Value}
		}
		env, err := envelope.Unwrap(envelope.Message{Topic: rec.Topic, Key: rec.Key, Value: rec.Value, Headers: headers})
		if err != nil {
			return nil, err
		}
		var req payment.Request
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode payment request: %w", err)
		}
		out = append(out, req)
	}
	return out, nil
}
