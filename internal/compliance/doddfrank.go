// Package compliance closes Dodd-Frank remittance cancellation windows and
// releases the wires that were waiting on them.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wires/internal/platform/metrics"
	"wires/internal/platform/redis"
	"wires/internal/wire/models"
	"wires/pkg/domain"
)

// LockName is the scheduler lock shared by all replicas.
const LockName = "doddFrankCancellation"

// Store lists and saves wires.
type Store interface {
	FindByDoddFrankWindow(ctx context.Context, inWindow bool) ([]*models.Wire, error)
	Save(ctx context.Context, wire *models.Wire) error
}

// PaymentSender publishes a payment request for a wire.
type PaymentSender interface {
	SendRequest(ctx context.Context, wire *models.Wire) error
}

// Locker takes a named, expiring lock.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// Job runs one pass over the wires inside their cancellation window.
type Job struct {
	store    Store
	payments PaymentSender
	locker   Locker
	lockTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Job.
type Option func(*Job)

// WithLocker guards each pass with a distributed lock held for at most ttl.
func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(j *Job) {
		j.locker = locker
		j.lockTTL = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		j.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) {
		j.metrics = m
	}
}

// NewJob creates a Dodd-Frank job.
func NewJob(store Store, payments PaymentSender, opts ...Option) (*Job, error) {
	if store == nil {
		return nil, errors.New("wire store is required")
	}
	if payments == nil {
		return nil, errors.New("payment sender is required")
	}
	j := &Job{
		store:    store,
		payments: payments,
		lockTTL:  5 * time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Run closes every expired cancellation window. A wire that is pending
// transfer gets its payment request after the save, so listeners see the
// latest version. Per-wire failures are logged and skipped.
func (j *Job) Run(ctx context.Context) error {
	if j.locker != nil {
		release, err := j.locker.TryLock(ctx, LockName, j.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			j.logger.DebugContext(ctx, "dodd-frank pass already running elsewhere")
			j.metrics.IncrementDoddFrankRun("skipped")
			return nil
		}
		if err != nil {
			j.metrics.IncrementDoddFrankRun("error")
			return fmt.Errorf("take dodd-frank lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				j.logger.WarnContext(ctx, "failed to release dodd-frank lock", "error", err)
			}
		}()
	}

	now := j.now()
	j.logger.InfoContext(ctx, "dodd-frank scheduler processing", "time", now)

	wires, err := j.store.FindByDoddFrankWindow(ctx, true)
	if err != nil {
		j.metrics.IncrementDoddFrankRun("error")
		return fmt.Errorf("list wires in cancellation window: %w", err)
	}

	for _, wire := range wires {
		if err := j.process(ctx, wire, now); err != nil {
			j.logger.ErrorContext(ctx, "error processing dodd-frank wire",
				"wire_id", wire.ID,
				"error", err,
			)
		}
	}
	j.metrics.IncrementDoddFrankRun("ok")
	return nil
}

func (j *Job) process(ctx context.Context, wire *models.Wire, now time.Time) error {
	df := wire.DoddFrank()
	if df == nil || !df.CancellationWindowEnd.Before(now) {
		return nil
	}

	j.logger.DebugContext(ctx, "cancellation window expired",
		"wire_id", wire.ID,
		"status", wire.Status,
	)
	df.InCancellationWindow = false
	if err := j.store.Save(ctx, wire); err != nil {
		return fmt.Errorf("save wire: %w", err)
	}
	j.metrics.IncrementDoddFrankReleased()

	if wire.Status == domain.WireStatusPendingTransfer {
		j.logger.InfoContext(ctx, "wire is pending transfer, sending payment request", "wire_id", wire.ID)
		if err := j.payments.SendRequest(ctx, wire); err != nil {
			return fmt.Errorf("send payment request: %w", err)
		}
	}
	return nil
}
