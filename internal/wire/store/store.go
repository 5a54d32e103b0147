// Package store persists wires in memory or in PostgreSQL.
package store

import (
	"context"

	"wires/internal/wire/models"
	"wires/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

// Store is the wire repository. Save increments Wire.Tag and fails with
// sentinel.ErrConflict when the stored tag no longer matches; FindByID
// returns sentinel.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, wire *models.Wire) error
	FindByID(ctx context.Context, id domain.WireID) (*models.Wire, error)
	FindByDoddFrankWindow(ctx context.Context, inWindow bool) ([]*models.Wire, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
