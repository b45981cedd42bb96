package shipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

// readyShipment satisfies every pre_shipment_ready precondition for a
// US-bound lane.
func readyShipment() *Shipment {
	applied := testNow.Add(-48 * time.Hour)
	certified := testNow.Add(-40 * time.Hour)
	submitted := testNow.Add(-30 * time.Hour)
	sh := &Shipment{
		ID:     domain.NewShipmentID(),
		Status: StatusRiskAssessed,
		Route: Route{
			OriginPort:         "Montreal",
			DestinationPort:    "Newark",
			DestinationCountry: "US",
		},
		Assessment: &SecurityRiskAssessment{OverallScore: 26, Level: RiskLow},
		Seal: Seal{
			Number:           "SL-100",
			Type:             SealBolt,
			AppliedAt:        &applied,
			OriginVerifiedAt: &applied,
			OriginVerifier:   "inspector",
			Intact:           true,
		},
	}
	sh.Security.RiskLevel = RiskLow
	sh.Filings.VGM = VGMFiling{WeightKg: 18000, Method: VGMMethod1, CertifiedAt: &certified}
	sh.Filings.AMS = AMSFiling{FilingNumber: "AMS-1", SubmittedAt: &submitted, Status: FilingSubmitted, SCAC: "MAEU"}
	return sh
}

func TestTransitionForwardPath(t *testing.T) {
	sh := readyShipment()

	moved, err := sh.Transition(StatusPreShipmentReady, testNow)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, StatusPreShipmentReady, sh.Status)

	sh.Verifications = append(sh.Verifications, PortVerification{
		Type: VerifyOriginDeparture, Passed: true,
	})
	sh.Schedule.ActualDeparture = ptr(testNow)

	moved, err = sh.Transition(StatusInTransit, testNow)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, StatusInTransit, sh.Status)
}

func TestTransitionSameStateIsNoOp(t *testing.T) {
	sh := readyShipment()
	moved, err := sh.Transition(StatusRiskAssessed, testNow)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, StatusRiskAssessed, sh.Status)
}

func TestTransitionSkippingEdgesRejected(t *testing.T) {
	sh := readyShipment()
	_, err := sh.Transition(StatusInTransit, testNow)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
}

func TestTransitionListsMissingPreconditions(t *testing.T) {
	sh := readyShipment()
	sh.Seal = Seal{}
	sh.Filings.VGM = VGMFiling{}

	_, err := sh.Transition(StatusPreShipmentReady, testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seal_applied")
	assert.Contains(t, err.Error(), "seal_verified_origin")
	assert.Contains(t, err.Error(), "vgm_certified")
	assert.Equal(t, StatusRiskAssessed, sh.Status, "no partial state change")
}

func TestAMS24hRuleBlocksDeparture(t *testing.T) {
	sh := readyShipment()
	_, err := sh.Transition(StatusPreShipmentReady, testNow)
	require.NoError(t, err)

	sh.Verifications = append(sh.Verifications, PortVerification{Type: VerifyOriginDeparture, Passed: true})
	// Departing 23 hours after the AMS submission violates the advance rule.
	sh.Schedule.ActualDeparture = ptr(sh.Filings.AMS.SubmittedAt.Add(23 * time.Hour))

	_, err = sh.Transition(StatusInTransit, testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ams_24h_rule")
}

func TestNonRegulatedLaneNeedsNoImportFiling(t *testing.T) {
	sh := readyShipment()
	sh.Route.DestinationCountry = "JP"
	sh.Filings.AMS = AMSFiling{}

	missing := sh.MissingPreconditions(StatusPreShipmentReady, testNow)
	assert.Empty(t, missing)
}

func TestEUDestinationRequiresENS(t *testing.T) {
	sh := readyShipment()
	sh.Route.DestinationCountry = "DE"
	sh.Filings.AMS = AMSFiling{}

	missing := sh.MissingPreconditions(StatusPreShipmentReady, testNow)
	assert.Contains(t, missing, "import_filing_submitted(ens)")

	sh.Filings.ENS = ENSFiling{MRN: "DE1234567890ABCDEF", Status: FilingSubmitted, FiledAt: ptr(testNow)}
	assert.Empty(t, sh.MissingPreconditions(StatusPreShipmentReady, testNow))
}

func TestHighRiskRequiresLRRegistration(t *testing.T) {
	sh := readyShipment()
	sh.Security.RiskLevel = RiskHigh

	missing := sh.MissingPreconditions(StatusPreShipmentReady, testNow)
	assert.Contains(t, missing, "lr_registration")

	sh.LR.TrackingID = "LR0011223344"
	assert.Empty(t, sh.MissingPreconditions(StatusPreShipmentReady, testNow))
}

func TestClosedRequiresLRCertificateWhenEngaged(t *testing.T) {
	sh := readyShipment()
	sh.Status = StatusReleased
	sh.LR.TrackingID = "LR0011223344"

	_, err := sh.Transition(StatusClosed, testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lr_safe_delivery_certificate")

	sh.LR.SafeDeliveryCertificate = "CERT-1"
	moved, err := sh.Transition(StatusClosed, testNow)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestDelayOverlay(t *testing.T) {
	sh := readyShipment()
	sh.Status = StatusInTransit

	require.NoError(t, sh.EnterDelay("storm off the Azores"))
	assert.Equal(t, StatusDelayed, sh.Status)
	assert.Equal(t, StatusInTransit, sh.PriorStatus)
	assert.Equal(t, "storm off the Azores", sh.DelayReason)

	t.Run("progress is blocked while delayed", func(t *testing.T) {
		_, err := sh.Transition(StatusArrivedDestination, testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	t.Run("re-entering updates the reason", func(t *testing.T) {
		require.NoError(t, sh.EnterDelay("port congestion"))
		assert.Equal(t, StatusDelayed, sh.Status)
		assert.Equal(t, "port congestion", sh.DelayReason)
	})

	require.NoError(t, sh.ExitDelay())
	assert.Equal(t, StatusInTransit, sh.Status)
	assert.Empty(t, sh.PriorStatus)
	assert.Empty(t, sh.DelayReason)

	assert.Error(t, sh.ExitDelay(), "not delayed anymore")
}

func TestIncidentOverlay(t *testing.T) {
	sh := readyShipment()
	sh.Status = StatusInTransit
	sh.Incidents = append(sh.Incidents, SecurityIncident{
		ID:       domain.NewIncidentID(),
		Type:     IncidentSealBreach,
		Severity: SeveritySevere,
	})

	sh.EnterIncident()
	assert.Equal(t, StatusIncidentOpen, sh.Status)
	assert.Equal(t, StatusInTransit, sh.PriorStatus)

	t.Run("cannot exit while severe incidents stay open", func(t *testing.T) {
		assert.Error(t, sh.ExitIncident())
	})

	sh.Incidents[0].Resolved = true
	require.NoError(t, sh.ExitIncident())
	assert.Equal(t, StatusInTransit, sh.Status)
}

func TestIncidentOutranksDelay(t *testing.T) {
	sh := readyShipment()
	sh.Status = StatusInTransit
	require.NoError(t, sh.EnterDelay("congestion"))

	sh.EnterIncident()
	assert.Equal(t, StatusIncidentOpen, sh.Status)
	assert.Equal(t, StatusInTransit, sh.PriorStatus, "original prior is kept")

	require.NoError(t, sh.ExitIncident())
	assert.Equal(t, StatusInTransit, sh.Status)
}

func TestCancelledIsTerminal(t *testing.T) {
	sh := readyShipment()
	moved, err := sh.Transition(StatusCancelled, testNow)
	require.NoError(t, err)
	assert.True(t, moved)

	_, err = sh.Transition(StatusRiskAssessed, testNow)
	assert.Error(t, err)
	assert.Error(t, sh.EnterDelay("too late"))
}

func TestOverlayIsNotADirectTransition(t *testing.T) {
	sh := readyShipment()
	_, err := sh.Transition(StatusDelayed, testNow)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
}
