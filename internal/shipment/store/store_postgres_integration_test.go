//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"seacert/internal/shipment"
	"seacert/internal/shipment/store"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/testutil"
	"seacert/pkg/testutil/containers"
)

type PostgresShipmentSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresShipmentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresShipmentSuite))
}

func (s *PostgresShipmentSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.Require().NoError(s.postgres.Apply(context.Background(), store.Schema))
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresShipmentSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "shipments"))
	s.now = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
}

func (s *PostgresShipmentSuite) newShipment(tracking string) *shipment.Shipment {
	return &shipment.Shipment{
		ID:             domain.NewShipmentID(),
		TrackingNumber: tracking,
		Status:         shipment.StatusPlanning,
		Deal: shipment.DealView{
			DealID:        domain.NewDealID(),
			VehicleMake:   "Toyota",
			VehicleModel:  "Camry",
			VehicleYear:   2023,
			DeclaredValue: 28000,
			Currency:      "CAD",
		},
		Route: shipment.Route{
			OriginPort:         "Vancouver",
			DestinationPort:    "Tokyo",
			DestinationCountry: "JP",
		},
		Seal: shipment.Seal{Intact: true},
	}
}

func (s *PostgresShipmentSuite) TestRoundTrip() {
	ctx := testutil.Context(s.now)
	sh := s.newShipment("SEC-2026-100001")
	s.Require().NoError(s.store.Create(ctx, sh))

	found, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(sh.TrackingNumber, found.TrackingNumber)
	s.Equal("Camry", found.Deal.VehicleModel)
	s.EqualValues(1, found.Version)
	s.True(found.Seal.Intact)

	byTracking, err := s.store.GetByTracking(ctx, "SEC-2026-100001")
	s.Require().NoError(err)
	s.Equal(sh.ID, byTracking.ID)
}

func (s *PostgresShipmentSuite) TestDuplicateTrackingConflicts() {
	ctx := testutil.Context(s.now)
	s.Require().NoError(s.store.Create(ctx, s.newShipment("SEC-2026-100002")))

	err := s.store.Create(ctx, s.newShipment("SEC-2026-100002"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PostgresShipmentSuite) TestOptimisticVersioning() {
	ctx := testutil.Context(s.now)
	sh := s.newShipment("SEC-2026-100003")
	s.Require().NoError(s.store.Create(ctx, sh))

	first, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	second, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)

	first.Status = shipment.StatusRiskAssessed
	s.Require().NoError(s.store.Update(ctx, first))
	s.EqualValues(2, first.Version)

	second.Status = shipment.StatusCancelled
	err = s.store.Update(ctx, second)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	current, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(shipment.StatusRiskAssessed, current.Status)
}

func (s *PostgresShipmentSuite) TestUpdateUnknownShipment() {
	sh := s.newShipment("SEC-2026-100004")
	sh.Version = 1
	err := s.store.Update(testutil.Context(s.now), sh)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PostgresShipmentSuite) TestListFilters() {
	ctx := testutil.Context(s.now)

	ng := s.newShipment("SEC-2026-100005")
	ng.Route.DestinationCountry = "NG"
	ng.Security.RiskLevel = shipment.RiskHigh
	s.Require().NoError(s.store.Create(ctx, ng))

	jp := s.newShipment("SEC-2026-100006")
	jp.Status = shipment.StatusInTransit
	s.Require().NoError(s.store.Create(testutil.Context(s.now.Add(time.Minute)), jp))

	all, err := s.store.List(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("SEC-2026-100005", all[0].TrackingNumber)

	highRisk, err := s.store.List(ctx, store.Filter{RiskLevel: shipment.RiskHigh})
	s.Require().NoError(err)
	s.Require().Len(highRisk, 1)
	s.Equal("NG", highRisk[0].Route.DestinationCountry)

	inTransit, err := s.store.List(ctx, store.Filter{Status: shipment.StatusInTransit})
	s.Require().NoError(err)
	s.Len(inTransit, 1)
}
