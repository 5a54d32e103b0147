package store

import (
	"context"
	"sort"
	"sync"

	"wires/internal/wire/models"
	"wires/pkg/domain"
	"wires/pkg/platform/sentinel"
)

// InMemory keeps wires in a map. Callers always receive copies.
type InMemory struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	wires map[domain.WireID]*models.Wire
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{wires: make(map[domain.WireID]*models.Wire)}
}

func (s *InMemory) Save(_ context.Context, wire *models.Wire) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.wires[wire.ID]; ok && current.Tag != wire.Tag {
		return sentinel.ErrConflict
	}
	wire.Tag++
	s.wires[wire.ID] = wire.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.WireID) (*models.Wire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if wire, ok := s.wires[id]; ok {
		return wire.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByDoddFrankWindow(_ context.Context, inWindow bool) ([]*models.Wire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Wire
	for _, wire := range s.wires {
		if wire.DoddFrank() == nil {
			continue
		}
		if wire.InDoddFrankWindow() == inWindow {
			out = append(out, wire.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DoddFrank().CancellationWindowEnd.Before(out[j].DoddFrank().CancellationWindowEnd)
	})
	return out, nil
}

// RunInTx serializes fn against other transactions on this store.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}
