package audit

import (
	"context"
	"sort"
	"sync"

	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/requestcontext"
)

// InMemoryStore keeps per-shipment append-only chains guarded by one mutex.
// The per-shipment sequence gives the monotonic order the contract requires.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.ShipmentID][]Entry
	seen    map[domain.AuditEntryID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[domain.ShipmentID][]Entry),
		seen:    make(map[domain.AuditEntryID]bool),
	}
}

func (s *InMemoryStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ShipmentID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeBadRequest, "audit entry requires a shipment id")
	}
	if !entry.ID.IsNil() {
		// A caller holding an already-persisted entry is attempting a
		// re-save, which the append-only contract forbids.
		return Entry{}, dErrors.New(dErrors.CodeImmutableAuditLog,
			"audit entries are immutable once written")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.entries[entry.ShipmentID]
	entry.ID = domain.NewAuditEntryID()
	entry.Seq = int64(len(chain)) + 1
	entry.Immutable = true
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if len(chain) > 0 {
		entry.PrevHash = chain[len(chain)-1].Hash
	}
	entry.Hash = ChainHash(entry.PrevHash, entry)

	s.entries[entry.ShipmentID] = append(chain, entry)
	s.seen[entry.ID] = true
	return entry, nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	appendMatches := func(chain []Entry) {
		for _, e := range chain {
			if !matches(e, filter) {
				continue
			}
			out = append(out, e)
		}
	}
	if !filter.ShipmentID.IsNil() {
		appendMatches(s.entries[filter.ShipmentID])
	} else {
		for _, chain := range s.entries {
			appendMatches(chain)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) VerifyChain(_ context.Context, shipmentID domain.ShipmentID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prev := ""
	for _, e := range s.entries[shipmentID] {
		if e.PrevHash != prev {
			return dErrors.Newf(dErrors.CodeImmutableAuditLog,
				"audit chain broken at seq %d: prev hash mismatch", e.Seq)
		}
		if ChainHash(prev, e) != e.Hash {
			return dErrors.Newf(dErrors.CodeImmutableAuditLog,
				"audit chain broken at seq %d: entry hash mismatch", e.Seq)
		}
		prev = e.Hash
	}
	return nil
}

func matches(e Entry, f Filter) bool {
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
