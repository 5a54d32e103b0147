// Package service applies payment and signature status messages to wires.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wires/internal/platform/metrics"
	"wires/internal/wire/models"
	"wires/internal/wire/store"
	"wires/pkg/domain"
	"wires/pkg/platform/sentinel"
)

// Metric sources.
const (
	SourcePayment   = "payment"
	SourceSignature = "signature"
)

const maxSaveAttempts = 3

// transition is what a payment status does to a wire.
type transition struct {
	status        domain.WireStatus
	event         string
	effectiveDate bool
}

var paymentTransitions = map[string]transition{
	models.PaymentPending:    {status: domain.WireStatusReceivedForProcessing, event: models.EventUpdate},
	models.PaymentProcessed:  {status: domain.WireStatusProcessed, event: models.EventProcessed, effectiveDate: true},
	models.PaymentFailed:     {status: domain.WireStatusTransferFailed, event: models.EventUpdate},
	models.PaymentError:      {status: domain.WireStatusTransferFailed, event: models.EventUpdate},
	models.PaymentBadRequest: {status: domain.WireStatusTransferFailed, event: models.EventUpdate},
}

// Service updates wires from upstream status reports.
type Service struct {
	store   store.Store
	now     func() time.Time
	loc     *time.Location
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the zone used to compute "today" for effective dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.loc = loc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a status service.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("wire store is required")
	}
	s := &Service{
		store:  st,
		now:    time.Now,
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ApplyPaymentStatus moves the wire named by resp.Initiator["id"] to the
// status mapped from resp.Status. Unknown statuses are logged and ignored,
// returning a nil wire.
func (s *Service) ApplyPaymentStatus(ctx context.Context, resp *models.PaymentResponse) (*models.Wire, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil payment response", domain.ErrInvalidInput)
	}
	id, err := resp.WireID()
	if err != nil {
		s.metrics.IncrementStatusUpdateFailure(SourcePayment, "invalid_id")
		return nil, err
	}

	t, ok := paymentTransitions[strings.ToUpper(resp.Status)]
	if !ok {
		s.logger.WarnContext(ctx, "ignoring unknown payment status",
			"wire_id", id,
			"status", resp.Status,
		)
		s.metrics.IncrementStatusUpdateFailure(SourcePayment, "unknown_status")
		return nil, nil
	}

	wire, err := s.update(ctx, SourcePayment, id, func(w *models.Wire, now time.Time) {
		w.Status = t.status
		if resp.FedReferenceNumber != "" {
			w.FedReferenceNumber = resp.FedReferenceNumber
		}
		if t.effectiveDate {
			w.EffectiveDate = s.today(now)
		}
		w.AddActivity(t.event, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wire payment status updated",
		"wire_id", id,
		"payment_status", resp.Status,
		"status", wire.Status,
	)
	s.metrics.IncrementStatusUpdate(SourcePayment, string(wire.Status))
	return wire, nil
}

// ApplySignatureStatus records how the wire was signed and appends an update
// event. Any existing signature is replaced.
func (s *Service) ApplySignatureStatus(ctx context.Context, id domain.WireID, st *models.SignatureStatus) (*models.Wire, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil signature status", domain.ErrInvalidInput)
	}
	wire, err := s.update(ctx, SourceSignature, id, func(w *models.Wire, now time.Time) {
		w.Signature = &models.Signature{Type: st.ModeOfSign}
		w.AddActivity(models.EventUpdate, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wire signature updated",
		"wire_id", id,
		"signature_status", st.Status,
		"mode_of_sign", st.ModeOfSign,
	)
	s.metrics.IncrementStatusUpdate(SourceSignature, string(wire.Status))
	return wire, nil
}

// update runs a read-modify-write of one wire inside a store transaction,
// retrying when a concurrent writer bumped the tag first.
func (s *Service) update(ctx context.Context, source string, id domain.WireID, mutate func(*models.Wire, time.Time)) (*models.Wire, error) {
	var wire *models.Wire
	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		err = s.store.RunInTx(ctx, func(ctx context.Context) error {
			w, err := s.store.FindByID(ctx, id)
			if err != nil {
				return err
			}
			mutate(w, s.now())
			if err := s.store.Save(ctx, w); err != nil {
				return err
			}
			wire = w
			return nil
		})
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		s.logger.DebugContext(ctx, "wire save conflict, retrying", "wire_id", id, "attempt", attempt)
	}

	switch {
	case err == nil:
		return wire, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementStatusUpdateFailure(source, "not_found")
		return nil, fmt.Errorf("wire %s: %w", id, err)
	case errors.Is(err, sentinel.ErrConflict):
		s.metrics.IncrementStatusUpdateFailure(source, "conflict")
		return nil, fmt.Errorf("wire %s: %w", id, err)
	default:
		s.metrics.IncrementStatusUpdateFailure(source, "store_error")
		return nil, fmt.Errorf("update wire %s: %w", id, err)
	}
}

func (s *Service) today(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}
