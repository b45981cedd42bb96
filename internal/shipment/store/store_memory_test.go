package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/testutil"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.now = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) newShipment(tracking, country string) *shipment.Shipment {
	return &shipment.Shipment{
		ID:             domain.NewShipmentID(),
		TrackingNumber: tracking,
		Status:         shipment.StatusPlanning,
		Route:          shipment.Route{OriginPort: "Montreal", DestinationPort: "Lagos", DestinationCountry: country},
	}
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	ctx := testutil.Context(s.now)
	sh := s.newShipment("SEC-2026-000001", "NG")
	s.Require().NoError(s.store.Create(ctx, sh))

	s.EqualValues(1, sh.Version)
	s.Equal(s.now, sh.CreatedAt)

	found, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(sh.TrackingNumber, found.TrackingNumber)

	byTracking, err := s.store.GetByTracking(ctx, "SEC-2026-000001")
	s.Require().NoError(err)
	s.Equal(sh.ID, byTracking.ID)
}

func (s *MemoryStoreSuite) TestGetUnknownReturnsNotFound() {
	_, err := s.store.Get(testutil.Context(s.now), domain.NewShipmentID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestDuplicateTrackingRejected() {
	ctx := testutil.Context(s.now)
	s.Require().NoError(s.store.Create(ctx, s.newShipment("SEC-2026-000002", "NG")))

	err := s.store.Create(ctx, s.newShipment("SEC-2026-000002", "GH"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MemoryStoreSuite) TestUpdateBumpsVersion() {
	ctx := testutil.Context(s.now)
	sh := s.newShipment("SEC-2026-000003", "NG")
	s.Require().NoError(s.store.Create(ctx, sh))

	sh.Status = shipment.StatusRiskAssessed
	later := testutil.Context(s.now.Add(time.Hour))
	s.Require().NoError(s.store.Update(later, sh))
	s.EqualValues(2, sh.Version)

	found, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(shipment.StatusRiskAssessed, found.Status)
	s.Equal(s.now.Add(time.Hour), found.UpdatedAt)
}

func (s *MemoryStoreSuite) TestConcurrentUpdateConflicts() {
	ctx := testutil.Context(s.now)
	sh := s.newShipment("SEC-2026-000004", "NG")
	s.Require().NoError(s.store.Create(ctx, sh))

	first, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	second, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)

	first.DelayReason = "winner"
	s.Require().NoError(s.store.Update(ctx, first))

	second.DelayReason = "loser"
	err = s.store.Update(ctx, second)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MemoryStoreSuite) TestStoredStateDoesNotAlias() {
	ctx := testutil.Context(s.now)
	sh := s.newShipment("SEC-2026-000005", "NG")
	s.Require().NoError(s.store.Create(ctx, sh))

	// Mutating the caller's copy must not leak into the store.
	sh.Route.DestinationCountry = "GH"

	found, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal("NG", found.Route.DestinationCountry)
}

func (s *MemoryStoreSuite) TestListFiltersAndOrders() {
	base := s.now
	for i, tc := range []struct {
		tracking string
		country  string
		status   shipment.Status
	}{
		{"SEC-2026-000010", "NG", shipment.StatusPlanning},
		{"SEC-2026-000011", "GH", shipment.StatusInTransit},
		{"SEC-2026-000012", "NG", shipment.StatusInTransit},
	} {
		sh := s.newShipment(tc.tracking, tc.country)
		sh.Status = tc.status
		ctx := testutil.Context(base.Add(time.Duration(i) * time.Minute))
		s.Require().NoError(s.store.Create(ctx, sh))
	}

	ctx := testutil.Context(base)

	all, err := s.store.List(ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal("SEC-2026-000010", all[0].TrackingNumber, "ordered by creation time")

	inTransit, err := s.store.List(ctx, Filter{Status: shipment.StatusInTransit})
	s.Require().NoError(err)
	s.Len(inTransit, 2)

	nigeria, err := s.store.List(ctx, Filter{DestinationCountry: "NG"})
	s.Require().NoError(err)
	s.Len(nigeria, 2)

	limited, err := s.store.List(ctx, Filter{Limit: 1})
	s.Require().NoError(err)
	s.Len(limited, 1)
}
