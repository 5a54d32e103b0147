package doddfrank

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"wires/internal/payment"
	"wires/internal/wire/models"
	"wires/pkg/domain"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SeedWire(ctx context.Context, name string, status domain.WireStatus, windowEnd *time.Time) error
	WireID(name string) (domain.WireID, error)
	Wire(ctx context.Context, name string) (*models.Wire, error)
	RunDoddFrank(ctx context.Context) error
	PaymentRequests() ([]payment.Request, error)
	Now() time.Time
}

// RegisterSteps registers Dodd-Frank cancellation window step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &doddFrankSteps{tc: tc}

	ctx.Step(`^an international wire "([^"]*)" in status "([^"]*)" whose cancellation window closed (\d+) minutes ago$`, steps.windowClosed)
	ctx.Step(`^an international wire "([^"]*)" in status "([^"]*)" whose cancellation window closes in (\d+) minutes$`, steps.windowOpen)
	ctx.Step(`^the Dodd-Frank job runs$`, steps.jobRuns)

	ctx.Step(`^wire "([^"]*)" should be out of its cancellation window$`, steps.outOfWindow)
	ctx.Step(`^wire "([^"]*)" should still be in its cancellation window$`, steps.stillInWindow)
	ctx.Step(`^a payment request should have been sent for "([^"]*)"$`, steps.requestSent)
	ctx.Step(`^no payment request should have been sent for "([^"]*)"$`, steps.noRequestSent)
}

type doddFrankSteps struct {
	tc TestContext
}

func (s *doddFrankSteps) windowClosed(ctx context.Context, name, status string, minutes int) error {
	return s.seed(ctx, name, status, -time.Duration(minutes)*time.Minute)
}

func (s *doddFrankSteps) windowOpen(ctx context.Context, name, status string, minutes int) error {
	return s.seed(ctx, name, status, time.Duration(minutes)*time.Minute)
}

func (s *doddFrankSteps) seed(ctx context.Context, name, status string, offset time.Duration) error {
	st, err := domain.ParseWireStatus(status)
	if err != nil {
		return err
	}
	end := s.tc.Now().Add(offset)
	return s.tc.SeedWire(ctx, name, st, &end)
}

func (s *doddFrankSteps) jobRuns(ctx context.Context) error {
	return s.tc.RunDoddFrank(ctx)
}

func (s *doddFrankSteps) outOfWindow(ctx context.Context, name string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if w.InDoddFrankWindow() {
		return fmt.Errorf("wire %q is still in its cancellation window", name)
	}
	return nil
}

func (s *doddFrankSteps) stillInWindow(ctx context.Context, name string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if !w.InDoddFrankWindow() {
		return fmt.Errorf("wire %q left its cancellation window early", name)
	}
	return nil
}

func (s *doddFrankSteps) requestSent(ctx context.Context, name string) error {
	sent, err := s.sentFor(name)
	if err != nil {
		return err
	}
	if sent != 1 {
		return fmt.Errorf("expected one payment request for %q, got %d", name, sent)
	}
	return nil
}

func (s *doddFrankSteps) noRequestSent(ctx context.Context, name string) error {
	sent, err := s.sentFor(name)
	if err != nil {
		return err
	}
	if sent != 0 {
		return fmt.Errorf("expected no payment request for %q, got %d", name, sent)
	}
	return nil
}

func (s *doddFrankSteps) sentFor(name string) (int, error) {
	id, err := s.tc.WireID(name)
	if err != nil {
		return 0, err
	}
	requests, err := s.tc.PaymentRequests()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range requests {
		if r.WireID == id.String() {
			n++
		}
	}
	return n, nil
}
