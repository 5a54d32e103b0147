package wire

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"wires/internal/wire/models"
	"wires/pkg/domain"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SeedWire(ctx context.Context, name string, status domain.WireStatus, windowEnd *time.Time) error
	WireID(name string) (domain.WireID, error)
	Wire(ctx context.Context, name string) (*models.Wire, error)
	DeliverPaymentStatus(ctx context.Context, id domain.WireID, status, fedRef string) error
	DeliverSignatureStatus(ctx context.Context, id domain.WireID, status, modeOfSign string) error
	LastDeliveryError() error
	Today() time.Time
}

// RegisterSteps registers wire status step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &wireSteps{tc: tc}

	ctx.Step(`^a wire "([^"]*)" in status "([^"]*)"$`, steps.aWireInStatus)

	ctx.Step(`^the payment system reports "([^"]*)" for "([^"]*)"$`, steps.paymentReports)
	ctx.Step(`^the payment system reports "([^"]*)" with reference "([^"]*)" for "([^"]*)"$`, steps.paymentReportsWithReference)
	ctx.Step(`^the payment system reports "([^"]*)" for an unknown wire$`, steps.paymentReportsForUnknownWire)
	ctx.Step(`^the signing service reports "([^"]*)" by "([^"]*)" for "([^"]*)"$`, steps.signingReports)

	ctx.Step(`^the record should be committed$`, steps.recordCommitted)
	ctx.Step(`^wire "([^"]*)" should be in status "([^"]*)"$`, steps.wireInStatus)
	ctx.Step(`^wire "([^"]*)" should have fed reference "([^"]*)"$`, steps.wireHasFedReference)
	ctx.Step(`^wire "([^"]*)" should have an effective date of today$`, steps.wireEffectiveToday)
	ctx.Step(`^wire "([^"]*)" should have no effective date$`, steps.wireNoEffectiveDate)
	ctx.Step(`^wire "([^"]*)" should have (\d+) activity events?$`, steps.wireActivityCount)
	ctx.Step(`^the last activity of wire "([^"]*)" should be "([^"]*)"$`, steps.lastActivity)
	ctx.Step(`^wire "([^"]*)" should be signed with "([^"]*)"$`, steps.wireSignedWith)
	ctx.Step(`^wire "([^"]*)" should be at version (\d+)$`, steps.wireAtVersion)
}

type wireSteps struct {
	tc TestContext
}

func (s *wireSteps) aWireInStatus(ctx context.Context, name, status string) error {
	st, err := domain.ParseWireStatus(status)
	if err != nil {
		return err
	}
	return s.tc.SeedWire(ctx, name, st, nil)
}

func (s *wireSteps) paymentReports(ctx context.Context, status, name string) error {
	return s.paymentReportsWithReference(ctx, status, "", name)
}

func (s *wireSteps) paymentReportsWithReference(ctx context.Context, status, fedRef, name string) error {
	id, err := s.tc.WireID(name)
	if err != nil {
		return err
	}
	return s.tc.DeliverPaymentStatus(ctx, id, status, fedRef)
}

func (s *wireSteps) paymentReportsForUnknownWire(ctx context.Context, status string) error {
	return s.tc.DeliverPaymentStatus(ctx, domain.NewWireID(), status, "")
}

func (s *wireSteps) signingReports(ctx context.Context, status, modeOfSign, name string) error {
	id, err := s.tc.WireID(name)
	if err != nil {
		return err
	}
	return s.tc.DeliverSignatureStatus(ctx, id, status, modeOfSign)
}

func (s *wireSteps) recordCommitted(ctx context.Context) error {
	if err := s.tc.LastDeliveryError(); err != nil {
		return fmt.Errorf("expected the record to be committed, handler returned: %w", err)
	}
	return nil
}

func (s *wireSteps) wireInStatus(ctx context.Context, name, status string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if string(w.Status) != status {
		return fmt.Errorf("expected wire %q in status %q, got %q", name, status, w.Status)
	}
	return nil
}

func (s *wireSteps) wireHasFedReference(ctx context.Context, name, fedRef string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if w.FedReferenceNumber != fedRef {
		return fmt.Errorf("expected fed reference %q, got %q", fedRef, w.FedReferenceNumber)
	}
	return nil
}

func (s *wireSteps) wireEffectiveToday(ctx context.Context, name string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if today := s.tc.Today(); !w.EffectiveDate.Equal(today) {
		return fmt.Errorf("expected effective date %s, got %s", today, w.EffectiveDate)
	}
	return nil
}

func (s *wireSteps) wireNoEffectiveDate(ctx context.Context, name string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if !w.EffectiveDate.IsZero() {
		return fmt.Errorf("expected no effective date, got %s", w.EffectiveDate)
	}
	return nil
}

func (s *wireSteps) wireActivityCount(ctx context.Context, name string, count int) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if len(w.Activity) != count {
		return fmt.Errorf("expected %d activity events, got %d", count, len(w.Activity))
	}
	return nil
}

func (s *wireSteps) lastActivity(ctx context.Context, name, eventType string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if len(w.Activity) == 0 {
		return fmt.Errorf("wire %q has no activity", name)
	}
	if last := w.Activity[len(w.Activity)-1]; last.Type != eventType {
		return fmt.Errorf("expected last activity %q, got %q", eventType, last.Type)
	}
	return nil
}

func (s *wireSteps) wireSignedWith(ctx context.Context, name, modeOfSign string) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if w.Signature == nil {
		return fmt.Errorf("wire %q has no signature", name)
	}
	if w.Signature.Type != modeOfSign {
		return fmt.Errorf("expected signature %q, got %q", modeOfSign, w.Signature.Type)
	}
	return nil
}

func (s *wireSteps) wireAtVersion(ctx context.Context, name string, tag int) error {
	w, err := s.tc.Wire(ctx, name)
	if err != nil {
		return err
	}
	if w.Tag != tag {
		return fmt.Errorf("expected version %d, got %d", tag, w.Tag)
	}
	return nil
}
