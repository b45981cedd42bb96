//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"seacert/internal/audit"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/testutil"
	"seacert/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
	now      time.Time
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.Require().NoError(s.postgres.Apply(context.Background(), audit.Schema))
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_log"))
	s.now = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
}

func (s *PostgresAuditSuite) TestAppendAndListRoundTrip() {
	shipmentID := domain.NewShipmentID()
	ctx := testutil.Context(s.now)

	first, err := s.store.Append(ctx, audit.Entry{
		ShipmentID:  shipmentID,
		Action:      audit.ActionSecurityMeasure,
		Description: "shipment registered",
	})
	s.Require().NoError(err)

	second, err := s.store.Append(testutil.Context(s.now.Add(time.Hour)), audit.Entry{
		ShipmentID:  shipmentID,
		Action:      audit.ActionSealApplied,
		Description: "seal SL-100 applied",
		RelatedType: "seal",
		RelatedID:   "SL-100",
	})
	s.Require().NoError(err)

	s.Equal(int64(1), first.Seq)
	s.Equal(int64(2), second.Seq)
	s.Equal(first.Hash, second.PrevHash)

	entries, err := s.store.List(ctx, audit.Filter{ShipmentID: shipmentID})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("shipment registered", entries[0].Description)
	s.Equal("SL-100", entries[1].RelatedID)
	s.True(entries[0].Immutable)
}

func (s *PostgresAuditSuite) TestReAppendRejected() {
	shipmentID := domain.NewShipmentID()
	stored, err := s.store.Append(testutil.Context(s.now), audit.Entry{
		ShipmentID:  shipmentID,
		Action:      audit.ActionSystemAlert,
		Description: "deadline approaching",
	})
	s.Require().NoError(err)

	_, err = s.store.Append(testutil.Context(s.now), stored)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeImmutableAuditLog))
}

func (s *PostgresAuditSuite) TestVerifyChainSurvivesReload() {
	shipmentID := domain.NewShipmentID()
	for i, desc := range []string{"registered", "assessed", "sealed", "departed"} {
		_, err := s.store.Append(testutil.Context(s.now.Add(time.Duration(i)*time.Hour)), audit.Entry{
			ShipmentID:  shipmentID,
			Action:      audit.ActionSecurityMeasure,
			Description: desc,
		})
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.VerifyChain(context.Background(), shipmentID))
}

func (s *PostgresAuditSuite) TestVerifyChainDetectsTampering() {
	shipmentID := domain.NewShipmentID()
	_, err := s.store.Append(testutil.Context(s.now), audit.Entry{
		ShipmentID:  shipmentID,
		Action:      audit.ActionSealVerified,
		Description: "seal verified",
	})
	s.Require().NoError(err)

	// Edit behind the store's back; the recomputed hash no longer matches.
	_, err = s.postgres.DB.Exec(
		"UPDATE audit_log SET description = 'tampered' WHERE shipment_id = $1", shipmentID)
	s.Require().NoError(err)

	err = s.store.VerifyChain(context.Background(), shipmentID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeImmutableAuditLog))
}

func (s *PostgresAuditSuite) TestSequencesIsolatedPerShipment() {
	a, b := domain.NewShipmentID(), domain.NewShipmentID()
	for _, id := range []domain.ShipmentID{a, b, a} {
		_, err := s.store.Append(testutil.Context(s.now), audit.Entry{
			ShipmentID:  id,
			Action:      audit.ActionSecurityMeasure,
			Description: "entry",
		})
		s.Require().NoError(err)
	}

	entries, err := s.store.List(context.Background(), audit.Filter{ShipmentID: a})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(2), entries[1].Seq)

	entries, err = s.store.List(context.Background(), audit.Filter{ShipmentID: b})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(int64(1), entries[0].Seq)
}
