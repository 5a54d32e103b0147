package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"wires/internal/platform/metrics"
	"wires/internal/wire/models"
	"wires/internal/wire/store"
	"wires/internal/wire/store/mocks"
	"wires/pkg/domain"
	"wires/pkg/platform/sentinel"
	bdd "wires/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	metrics *metrics.Metrics
	service *Service
	now     time.Time
	newYork *time.Location
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	var err error
	s.newYork, err = time.LoadLocation("America/New_York")
	s.Require().NoError(err)
	// 22:30 on the 19th in New York, already the 20th in UTC.
	s.now = time.Date(2024, 8, 20, 2, 30, 0, 0, time.UTC)

	s.store = store.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service, err = New(s.store,
		WithClock(func() time.Time { return s.now }),
		WithLocation(s.newYork),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) seed(status domain.WireStatus) *models.Wire {
	wire := &models.Wire{
		ID:            domain.NewWireID(),
		Status:        status,
		Type:          "domestic",
		Purpose:       "wire payment",
		Department:    "RETAIL",
		Amount:        150000,
		EffectiveDate: time.Date(2022, 8, 19, 0, 0, 0, 0, s.newYork),
		Activity:      []models.Event{{Type: "create", Timestamp: s.now.Add(-time.Hour)}},
	}
	s.Require().NoError(s.store.Save(context.Background(), wire))
	return wire
}

func paymentResponse(id domain.WireID, status string) *models.PaymentResponse {
	return &models.PaymentResponse{
		Initiator:          map[string]string{"id": id.String()},
		Status:             status,
		FedReferenceNumber: "20200323C1B76D1C003155",
		MechanismType:      "WIRE",
	}
}

// =============================================================================
// Payment status
// =============================================================================

func (s *ServiceSuite) TestApplyPaymentStatusTransitions() {
	tests := []struct {
		current       domain.WireStatus
		status        string
		expected      domain.WireStatus
		effectiveDate bool
		event         string
	}{
		{domain.WireStatusPendingTransfer, "pending", domain.WireStatusReceivedForProcessing, false, models.EventUpdate},
		{domain.WireStatusReceivedForProcessing, "processed", domain.WireStatusProcessed, true, models.EventProcessed},
		{domain.WireStatusPendingTransfer, "failed", domain.WireStatusTransferFailed, false, models.EventUpdate},
		{domain.WireStatusPendingTransfer, "error", domain.WireStatusTransferFailed, false, models.EventUpdate},
		{domain.WireStatusPendingTransfer, "bad_request", domain.WireStatusTransferFailed, false, models.EventUpdate},
		{domain.WireStatusPendingTransfer, "BAD_REQUEST", domain.WireStatusTransferFailed, false, models.EventUpdate},
	}
	for _, tt := range tests {
		s.Run(string(tt.current)+" + "+tt.status, func() {
			seeded := s.seed(tt.current)

			wire, err := s.service.ApplyPaymentStatus(context.Background(), paymentResponse(seeded.ID, tt.status))
			s.Require().NoError(err)
			s.Equal(tt.expected, wire.Status)

			stored, err := s.store.FindByID(context.Background(), seeded.ID)
			s.Require().NoError(err)
			s.Equal(tt.expected, stored.Status)
			s.Equal("20200323C1B76D1C003155", stored.FedReferenceNumber)
			s.Require().Len(stored.Activity, 2)
			s.Equal(seeded.Activity[0], stored.Activity[0])
			s.Equal(models.Event{Type: tt.event, Timestamp: s.now}, stored.Activity[1])
			if tt.effectiveDate {
				s.Equal(time.Date(2024, 8, 19, 0, 0, 0, 0, s.newYork), stored.EffectiveDate)
			} else {
				s.Equal(seeded.EffectiveDate, stored.EffectiveDate)
			}
		})
	}
}

func (s *ServiceSuite) TestApplyPaymentStatusUnknownStatusIsIgnored() {
	seeded := s.seed(domain.WireStatusPendingTransfer)

	wire, err := s.service.ApplyPaymentStatus(context.Background(), paymentResponse(seeded.ID, "ON_HOLD"))
	s.Require().NoError(err)
	s.Nil(wire)

	stored, err := s.store.FindByID(context.Background(), seeded.ID)
	s.Require().NoError(err)
	s.Equal(domain.WireStatusPendingTransfer, stored.Status)
	s.Equal(1, stored.Tag)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StatusUpdateFailures.WithLabelValues(SourcePayment, "unknown_status")))
}

func (s *ServiceSuite) TestApplyPaymentStatusErrors() {
	s.Run("unknown wire", func() {
		_, err := s.service.ApplyPaymentStatus(context.Background(), paymentResponse(domain.NewWireID(), "PROCESSED"))
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.StatusUpdateFailures.WithLabelValues(SourcePayment, "not_found")))
	})

	s.Run("missing initiator id", func() {
		_, err := s.service.ApplyPaymentStatus(context.Background(), &models.PaymentResponse{Status: "PROCESSED"})
		s.ErrorIs(err, domain.ErrInvalidInput)
	})

	s.Run("malformed initiator id", func() {
		resp := &models.PaymentResponse{Initiator: map[string]string{"id": "not-a-uuid"}, Status: "PROCESSED"}
		_, err := s.service.ApplyPaymentStatus(context.Background(), resp)
		s.ErrorIs(err, domain.ErrInvalidInput)
	})

	s.Run("nil response", func() {
		_, err := s.service.ApplyPaymentStatus(context.Background(), nil)
		s.ErrorIs(err, domain.ErrInvalidInput)
	})
}

// =============================================================================
// Signature status
// =============================================================================

func (s *ServiceSuite) TestApplySignatureStatus() {
	for _, mode := range []string{"esign", "wsign"} {
		s.Run(mode, func() {
			seeded := s.seed(domain.WireStatusPendingSignature)

			_, err := s.service.ApplySignatureStatus(context.Background(), seeded.ID,
				&models.SignatureStatus{Status: "Success", ModeOfSign: mode})
			s.Require().NoError(err)

			expected := seeded.Clone()
			expected.Signature = &models.Signature{Type: mode}
			expected.Tag = 2
			expected.AddActivity(models.EventUpdate, s.now)

			stored, err := s.store.FindByID(context.Background(), seeded.ID)
			s.Require().NoError(err)
			s.Equal(expected, stored)
		})
	}
}

func (s *ServiceSuite) TestApplySignatureStatusOverwritesExisting() {
	seeded := s.seed(domain.WireStatusPendingSignature)
	seeded.Signature = &models.Signature{Type: "wsign"}
	s.Require().NoError(s.store.Save(context.Background(), seeded))

	wire, err := s.service.ApplySignatureStatus(context.Background(), seeded.ID,
		&models.SignatureStatus{Status: "Success", ModeOfSign: "esign"})
	s.Require().NoError(err)
	s.Equal(&models.Signature{Type: "esign"}, wire.Signature)
	s.Equal(3, wire.Tag)
}

func (s *ServiceSuite) TestApplySignatureStatusUnknownWire() {
	_, err := s.service.ApplySignatureStatus(context.Background(), domain.NewWireID(),
		&models.SignatureStatus{Status: "Success", ModeOfSign: "esign"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// =============================================================================
// Concurrency
// =============================================================================

func TestUpdateRetriesOnConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc, err := New(st, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	id := domain.NewWireID()
	runFn := func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
	fresh := func(context.Context, domain.WireID) (*models.Wire, error) {
		return &models.Wire{ID: id, Status: domain.WireStatusPendingTransfer, Tag: 1}, nil
	}

	var (
		wire     *models.Wire
		applyErr error
	)
	bdd.Scenario(t, "stale tag on save",
		bdd.Given("a concurrent writer saves first", func(t *testing.T) {
			st.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(runFn).Times(2)
			st.EXPECT().FindByID(gomock.Any(), id).DoAndReturn(fresh).Times(2)
			gomock.InOrder(
				st.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
				st.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
			)
		}),
		bdd.When("a payment status arrives", func(t *testing.T) {
			wire, applyErr = svc.ApplyPaymentStatus(context.Background(), paymentResponse(id, "PENDING"))
		}),
		bdd.Then("the update is retried", func(t *testing.T) {
			require.NoError(t, applyErr)
		}),
		bdd.And("the new status is applied", func(t *testing.T) {
			require.Equal(t, domain.WireStatusReceivedForProcessing, wire.Status)
		}),
	)
}

func TestUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc, err := New(st, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	id := domain.NewWireID()
	st.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }).
		Times(maxSaveAttempts)
	st.EXPECT().FindByID(gomock.Any(), id).
		DoAndReturn(func(context.Context, domain.WireID) (*models.Wire, error) {
			return &models.Wire{ID: id}, nil
		}).
		Times(maxSaveAttempts)
	st.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(maxSaveAttempts)

	_, err = svc.ApplySignatureStatus(context.Background(), id, &models.SignatureStatus{ModeOfSign: "esign"})
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil)
	require.EqualError(t, err, "wire store is required")
}
