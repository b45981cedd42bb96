package compliance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/internal/audit"
	"seacert/internal/compliance"
	"seacert/internal/shipment"
	"seacert/pkg/domain"
	"seacert/pkg/testutil"
)

var reportNow = time.Date(2026, time.March, 16, 9, 30, 0, 0, time.UTC)

type stubAuditLog struct {
	entries []audit.Entry
}

func (s stubAuditLog) List(context.Context, audit.Filter) ([]audit.Entry, error) {
	return s.entries, nil
}

func assessedShipment(createdAt time.Time) *shipment.Shipment {
	return &shipment.Shipment{
		ID:             domain.NewShipmentID(),
		TrackingNumber: "SEC-20260302-4F7A21",
		Status:         shipment.StatusRiskAssessed,
		CreatedAt:      createdAt,
		Assessment: &shipment.SecurityRiskAssessment{
			ID:           domain.NewAssessmentID(),
			OverallScore: 26,
			Level:        shipment.RiskLow,
		},
		Security: shipment.SecurityProfile{
			RiskLevel:         shipment.RiskLow,
			RiskScore:         26,
			InsuranceAmount:   33600,
			InsuranceCurrency: "CAD",
		},
	}
}

func TestReportPartialControls(t *testing.T) {
	// An aged shipment with only an assessment and insurance on file scores
	// two of the five ISO 28000 items.
	sh := assessedShipment(reportNow.Add(-8 * 24 * time.Hour))
	reporter := compliance.NewReporter(stubAuditLog{})

	report, err := reporter.Report(testutil.Context(reportNow), sh)
	require.NoError(t, err)

	assert.Equal(t, 40, report.ISO28000.Score)
	assert.False(t, report.ISO28000.Ready)
	assert.Len(t, report.ISO28000.Missing, 3)
	assert.Contains(t, report.ISO28000.Missing, "audit trail populated")

	assert.Equal(t, 0, report.ISO18602.Score)
	assert.Contains(t, report.Recommendations, "apply and record a container seal")
}

func TestReportFullControls(t *testing.T) {
	applied := reportNow.Add(-10 * 24 * time.Hour)
	sh := assessedShipment(reportNow.Add(-12 * 24 * time.Hour))
	sh.Status = shipment.StatusInTransit
	sh.Container = shipment.Container{Number: "TCNU1234565", Type: "40HC"}
	sh.Seal = shipment.Seal{Number: "SL-7741023", AppliedAt: &applied, Intact: true}
	sh.GPS = &shipment.Position{Latitude: 38.52, Longitude: -152.7, UpdatedAt: reportNow}
	sh.Verifications = []shipment.PortVerification{
		{Type: shipment.VerifyOriginDeparture, PortName: "Vancouver", VerifiedAt: applied, Passed: true},
	}
	sh.Incidents = []shipment.SecurityIncident{
		{Type: shipment.IncidentWeather, Severity: shipment.SeverityMinor, Resolved: true},
	}
	sh.ISO18602Compliant = true
	reporter := compliance.NewReporter(stubAuditLog{entries: []audit.Entry{{Action: audit.ActionSecurityMeasure}}})

	report, err := reporter.Report(testutil.Context(reportNow), sh)
	require.NoError(t, err)

	assert.Equal(t, 100, report.ISO28000.Score)
	assert.True(t, report.ISO28000.Ready)
	assert.Equal(t, 100, report.ISO18602.Score)
	assert.True(t, report.ISO18602.Ready)
	assert.Empty(t, report.ISO18602.Missing)
	assert.Empty(t, report.Recommendations)
	assert.Equal(t, sh.TrackingNumber, report.TrackingNumber)
	assert.True(t, report.GeneratedAt.Equal(reportNow))
}

func TestReportRecommendsLRForHighRisk(t *testing.T) {
	sh := assessedShipment(reportNow.Add(-time.Hour))
	sh.Security.RiskScore = 72
	sh.Security.RiskLevel = shipment.RiskHigh
	reporter := compliance.NewReporter(stubAuditLog{})

	report, err := reporter.Report(testutil.Context(reportNow), sh)
	require.NoError(t, err)
	assert.Contains(t, report.Recommendations,
		"register high-risk cargo with Lloyd's Register third-party verification")

	sh.LR = shipment.LloydsRecord{TrackingID: "LR4A1B2C3D4E"}
	report, err = reporter.Report(testutil.Context(reportNow), sh)
	require.NoError(t, err)
	assert.NotContains(t, report.Recommendations,
		"register high-risk cargo with Lloyd's Register third-party verification")
}

func TestFreshShipmentGetsIncidentGrace(t *testing.T) {
	sh := assessedShipment(reportNow.Add(-time.Hour))
	reporter := compliance.NewReporter(stubAuditLog{})

	report, err := reporter.Report(testutil.Context(reportNow), sh)
	require.NoError(t, err)
	for _, check := range report.ISO28000.Checks {
		if check.Name == "incident tracking active" {
			assert.True(t, check.Met)
		}
	}
	assert.Equal(t, 60, report.ISO28000.Score)
}
