// Package models holds the wire aggregate and the status messages consumed
// from the payment execution and signature systems.
package models

import (
	"time"

	"wires/pkg/domain"
)

// Activity event types appended by status updates.
const (
	EventUpdate    = "update"
	EventProcessed = "processed"
)

// Wire is a wire transfer request.
type Wire struct {
	ID                 domain.WireID      `json:"id"`
	Status             domain.WireStatus  `json:"status"`
	Type               string             `json:"type"`
	Purpose            string             `json:"purpose"`
	Department         string             `json:"department"`
	Amount             int64              `json:"amount"` // minor units
	Currency           string             `json:"currency"`
	EffectiveDate      time.Time          `json:"effectiveDate"`
	FedReferenceNumber string             `json:"fedReferenceNumber,omitempty"`
	Signature          *Signature         `json:"signature,omitempty"`
	International      *InternationalWire `json:"internationalWire,omitempty"`
	Activity           []Event            `json:"activity"`
	// Tag is the optimistic-lock version, incremented by every save.
	Tag int `json:"tag"`
}

// Signature records how the customer signed the wire.
type Signature struct {
	Type string `json:"type"`
}

// InternationalWire carries the cross-border details of a wire.
type InternationalWire struct {
	BeneficiaryCountry string     `json:"beneficiaryCountry"`
	DoddFrank          *DoddFrank `json:"doddFrank,omitempty"`
}

// DoddFrank tracks the remittance cancellation window for personal
// international wires.
type DoddFrank struct {
	InCancellationWindow  bool      `json:"inCancellationWindow"`
	CancellationWindowEnd time.Time `json:"cancellationWindowEnd"`
}

// Event is one entry of the wire activity log.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// AddActivity appends an event to the activity log.
func (w *Wire) AddActivity(eventType string, at time.Time) {
	w.Activity = append(w.Activity, Event{Type: eventType, Timestamp: at})
}

// InDoddFrankWindow reports whether the wire is flagged as inside its
// cancellation window.
func (w *Wire) InDoddFrankWindow() bool {
	return w.DoddFrank() != nil && w.DoddFrank().InCancellationWindow
}

// DoddFrank returns the cancellation window details, or nil.
func (w *Wire) DoddFrank() *DoddFrank {
	if w.International == nil {
		return nil
	}
	return w.International.DoddFrank
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (w *Wire) Clone() *Wire {
	if w == nil {
		return nil
	}
	c := *w
	if w.Signature != nil {
		sig := *w.Signature
		c.Signature = &sig
	}
	if w.International != nil {
		intl := *w.International
		if intl.DoddFrank != nil {
			df := *intl.DoddFrank
			intl.DoddFrank = &df
		}
		c.International = &intl
	}
	c.Activity = append([]Event(nil), w.Activity...)
	return &c
}
