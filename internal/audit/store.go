package audit

import (
	"context"
	"time"

	"seacert/pkg/domain"
)

// Filter narrows a read of the audit log. Zero values mean "no constraint".
type Filter struct {
	ShipmentID domain.ShipmentID
	Actions    []ActionType
	From       time.Time
	To         time.Time
	Limit      int
}

// Store is the append-only contract. There is deliberately no update or
// delete; any attempt to re-append an already persisted entry fails with
// CodeImmutableAuditLog.
type Store interface {
	// Append assigns the entry its ID, sequence number, and chain hashes,
	// persists it, and returns the stored entry.
	Append(ctx context.Context, entry Entry) (Entry, error)

	// List returns entries matching the filter ordered by (timestamp, seq).
	List(ctx context.Context, filter Filter) ([]Entry, error)

	// VerifyChain walks one shipment's entries and reports the first break
	// in the hash chain, if any.
	VerifyChain(ctx context.Context, shipmentID domain.ShipmentID) error
}
