package store_test

import (
	"time"

	"wires/internal/wire/models"
	"wires/pkg/domain"
)

func newWire(status domain.WireStatus) *models.Wire {
	return &models.Wire{
		ID:            domain.NewWireID(),
		Status:        status,
		Type:          "domestic",
		Purpose:       "wire payment",
		Department:    "RETAIL",
		Amount:        150000,
		Currency:      "USD",
		EffectiveDate: time.Date(2024, 8, 19, 0, 0, 0, 0, time.UTC),
		Activity:      []models.Event{{Type: "create", Timestamp: time.Date(2024, 8, 18, 12, 0, 0, 0, time.UTC)}},
	}
}

func newInternationalWire(status domain.WireStatus, inWindow bool, windowEnd time.Time) *models.Wire {
	w := newWire(status)
	w.Type = "international"
	w.International = &models.InternationalWire{
		BeneficiaryCountry: "CA",
		DoddFrank: &models.DoddFrank{
			InCancellationWindow:  inWindow,
			CancellationWindowEnd: windowEnd,
		},
	}
	return w
}
