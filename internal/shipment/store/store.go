// Package store persists shipment aggregates. Both implementations guard
// concurrent writers with an aggregate version: an update whose version does
// not match the stored one fails with a conflict instead of silently losing
// the other writer's changes.
package store

import (
	"context"

	"seacert/internal/shipment"
	"seacert/pkg/domain"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status             shipment.Status
	RiskLevel          shipment.RiskLevel
	DestinationCountry string
	Limit              int
}

type Store interface {
	// Create persists a new aggregate. Fails with a conflict when the id or
	// tracking number is already taken.
	Create(ctx context.Context, s *shipment.Shipment) error

	Get(ctx context.Context, id domain.ShipmentID) (*shipment.Shipment, error)
	GetByTracking(ctx context.Context, trackingNumber string) (*shipment.Shipment, error)

	// Update persists the aggregate if s.Version still matches the stored
	// version, then increments it. A stale version fails with a conflict.
	Update(ctx context.Context, s *shipment.Shipment) error

	List(ctx context.Context, filter Filter) ([]*shipment.Shipment, error)
}
