package store

import (
	"context"
	"sort"
	"sync"

	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/requestcontext"
)

// MemoryStore is the in-process implementation used in development and tests.
// Reads and writes exchange deep copies so callers never alias stored state.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[domain.ShipmentID]*shipment.Shipment
	byTracking map[string]domain.ShipmentID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[domain.ShipmentID]*shipment.Shipment),
		byTracking: make(map[string]domain.ShipmentID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, sh *shipment.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[sh.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "shipment %s already exists", sh.ID)
	}
	if _, exists := s.byTracking[sh.TrackingNumber]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "tracking number %s already taken", sh.TrackingNumber)
	}

	now := requestcontext.Now(ctx)
	sh.Version = 1
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = now
	}
	sh.UpdatedAt = now

	s.byID[sh.ID] = sh.Clone()
	s.byTracking[sh.TrackingNumber] = sh.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.ShipmentID) (*shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "shipment %s not found", id)
	}
	return stored.Clone(), nil
}

func (s *MemoryStore) GetByTracking(_ context.Context, trackingNumber string) (*shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTracking[trackingNumber]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "shipment %s not found", trackingNumber)
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, sh *shipment.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[sh.ID]
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "shipment %s not found", sh.ID)
	}
	if stored.Version != sh.Version {
		return dErrors.Newf(dErrors.CodeConflict,
			"shipment %s was modified concurrently (have version %d, stored %d)",
			sh.ID, sh.Version, stored.Version)
	}

	sh.Version++
	sh.UpdatedAt = requestcontext.Now(ctx)
	s.byID[sh.ID] = sh.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*shipment.Shipment
	for _, sh := range s.byID {
		if !matches(sh, filter) {
			continue
		}
		out = append(out, sh.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TrackingNumber < out[j].TrackingNumber
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(sh *shipment.Shipment, filter Filter) bool {
	if filter.Status != "" && sh.Status != filter.Status {
		return false
	}
	if filter.RiskLevel != "" && sh.Security.RiskLevel != filter.RiskLevel {
		return false
	}
	if filter.DestinationCountry != "" && sh.Route.DestinationCountry != filter.DestinationCountry {
		return false
	}
	return true
}
