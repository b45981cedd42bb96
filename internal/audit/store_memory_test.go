package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
	"seacert/pkg/testutil"
)

type AuditStoreSuite struct {
	suite.Suite
	store      *InMemoryStore
	shipmentID domain.ShipmentID
	now        time.Time
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.shipmentID = domain.NewShipmentID()
	s.now = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
}

func (s *AuditStoreSuite) append(action ActionType, desc string, at time.Time) Entry {
	stored, err := s.store.Append(testutil.Context(at), Entry{
		ShipmentID:  s.shipmentID,
		Action:      action,
		Description: desc,
	})
	s.Require().NoError(err)
	return stored
}

func (s *AuditStoreSuite) TestAppendAssignsSequenceAndChain() {
	first := s.append(ActionSecurityMeasure, "shipment registered", s.now)
	second := s.append(ActionRiskAssessment, "risk assessed at 26", s.now.Add(time.Hour))

	s.Equal(int64(1), first.Seq)
	s.Equal(int64(2), second.Seq)
	s.True(first.Immutable)
	s.Empty(first.PrevHash)
	s.Equal(first.Hash, second.PrevHash)
	s.NotEmpty(second.Hash)
	s.Equal("test-operator", first.ActorID)
}

func (s *AuditStoreSuite) TestReAppendRejected() {
	stored := s.append(ActionSealApplied, "seal SL-100 applied", s.now)

	_, err := s.store.Append(testutil.Context(s.now), stored)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeImmutableAuditLog))
}

func (s *AuditStoreSuite) TestVerifyChain() {
	s.append(ActionSecurityMeasure, "shipment registered", s.now)
	s.append(ActionSealApplied, "seal applied", s.now.Add(time.Hour))
	s.append(ActionSealVerified, "seal verified at origin", s.now.Add(2*time.Hour))

	s.Require().NoError(s.store.VerifyChain(testutil.Context(s.now), s.shipmentID))

	s.Run("detects a retroactive edit", func() {
		s.store.entries[s.shipmentID][1].Description = "tampered"
		err := s.store.VerifyChain(testutil.Context(s.now), s.shipmentID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeImmutableAuditLog))
	})
}

func (s *AuditStoreSuite) TestChainsAreIndependentPerShipment() {
	other := domain.NewShipmentID()
	s.append(ActionSecurityMeasure, "first shipment", s.now)

	stored, err := s.store.Append(testutil.Context(s.now), Entry{
		ShipmentID:  other,
		Action:      ActionSecurityMeasure,
		Description: "second shipment",
	})
	s.Require().NoError(err)
	s.Equal(int64(1), stored.Seq)
	s.Empty(stored.PrevHash)
}

func (s *AuditStoreSuite) TestListFilters() {
	s.append(ActionSecurityMeasure, "registered", s.now)
	s.append(ActionRiskAssessment, "assessed", s.now.Add(time.Hour))
	s.append(ActionSealApplied, "sealed", s.now.Add(2*time.Hour))

	ctx := testutil.Context(s.now)

	byAction, err := s.store.List(ctx, Filter{
		ShipmentID: s.shipmentID,
		Actions:    []ActionType{ActionRiskAssessment},
	})
	s.Require().NoError(err)
	s.Require().Len(byAction, 1)
	s.Equal("assessed", byAction[0].Description)

	byWindow, err := s.store.List(ctx, Filter{
		ShipmentID: s.shipmentID,
		From:       s.now.Add(30 * time.Minute),
	})
	s.Require().NoError(err)
	s.Len(byWindow, 2)

	limited, err := s.store.List(ctx, Filter{ShipmentID: s.shipmentID, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(int64(1), limited[0].Seq, "oldest first")
}

func (s *AuditStoreSuite) TestMissingShipmentIDRejected() {
	_, err := s.store.Append(testutil.Context(s.now), Entry{Action: ActionSystemAlert})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestChainHashIsDeterministic(t *testing.T) {
	at := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	entry := Entry{
		ShipmentID:  domain.NewShipmentID(),
		Seq:         1,
		Action:      ActionSealApplied,
		Timestamp:   at,
		ActorID:     "ops-1",
		Description: "seal applied",
	}
	if ChainHash("", entry) != ChainHash("", entry) {
		t.Fatal("hash of identical entries differs")
	}
	altered := entry
	altered.Description = "seal applied late"
	if ChainHash("", entry) == ChainHash("", altered) {
		t.Fatal("hash ignores the description")
	}
}
