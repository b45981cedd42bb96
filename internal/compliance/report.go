// Package compliance scores a shipment against the ISO 28000 security
// management checklist and the ISO 18602 tracking checklist. Scores are
// recomputed from the shipment on every call; nothing here is persisted.
package compliance

import (
	"context"
	"time"

	"seacert/internal/audit"
	"seacert/internal/shipment"
	"seacert/pkg/requestcontext"
)

// pointsPerItem gives each of the five checklist items equal weight on the
// 0-100 scale.
const pointsPerItem = 20

// readyThreshold is the score at which a standard is considered met.
const readyThreshold = 80

// incidentTrackingGrace is how long a fresh shipment may go without any
// incident record before the tracking item counts as unmet. A young
// shipment with a clean record is compliant; an old one with no incident
// entries at all suggests nobody is filing them.
const incidentTrackingGrace = 7 * 24 * time.Hour

// Check is one evaluated checklist item.
type Check struct {
	Name string
	Met  bool
}

// StandardReport scores one standard.
type StandardReport struct {
	Standard string
	Score    int
	Ready    bool
	Checks   []Check
	Missing  []string
}

// Report is the combined compliance view of a shipment.
type Report struct {
	ShipmentID      string
	TrackingNumber  string
	GeneratedAt     time.Time
	ISO28000        StandardReport
	ISO18602        StandardReport
	Recommendations []string
}

// AuditReader is the slice of the audit store the reporter needs.
type AuditReader interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// Reporter builds compliance reports.
type Reporter struct {
	auditLog AuditReader
}

func NewReporter(auditLog AuditReader) *Reporter {
	return &Reporter{auditLog: auditLog}
}

// Report evaluates both standards for the shipment.
func (r *Reporter) Report(ctx context.Context, sh *shipment.Shipment) (*Report, error) {
	now := requestcontext.Now(ctx)

	entries, err := r.auditLog.List(ctx, audit.Filter{ShipmentID: sh.ID, Limit: 1})
	if err != nil {
		return nil, err
	}
	auditPopulated := len(entries) > 0

	iso28000 := score("ISO 28000", []Check{
		{Name: "security risk assessment completed", Met: sh.Assessment != nil},
		{Name: "security measures documented", Met: securityMeasuresDocumented(sh)},
		{Name: "insurance coverage recorded", Met: sh.Security.InsuranceAmount > 0},
		{Name: "incident tracking active", Met: incidentTrackingActive(sh, now)},
		{Name: "audit trail populated", Met: auditPopulated},
	})
	iso18602 := score("ISO 18602", []Check{
		{Name: "container number recorded", Met: sh.Container.Number != ""},
		{Name: "GPS position available", Met: sh.GPS != nil},
		{Name: "port verification on record", Met: len(sh.Verifications) > 0},
		{Name: "container seal applied", Met: sh.Seal.AppliedAt != nil},
		{Name: "tracking message exported", Met: sh.ISO18602Compliant},
	})

	return &Report{
		ShipmentID:      sh.ID.String(),
		TrackingNumber:  sh.TrackingNumber,
		GeneratedAt:     now,
		ISO28000:        iso28000,
		ISO18602:        iso18602,
		Recommendations: recommendations(sh, iso28000, iso18602),
	}, nil
}

func score(standard string, checks []Check) StandardReport {
	report := StandardReport{Standard: standard, Checks: checks}
	for _, check := range checks {
		if check.Met {
			report.Score += pointsPerItem
		} else {
			report.Missing = append(report.Missing, check.Name)
		}
	}
	report.Ready = report.Score >= readyThreshold
	return report
}

func securityMeasuresDocumented(sh *shipment.Shipment) bool {
	if sh.Seal.AppliedAt != nil {
		return true
	}
	return sh.Assessment != nil && sh.Assessment.Mitigation != ""
}

func incidentTrackingActive(sh *shipment.Shipment, now time.Time) bool {
	if len(sh.Incidents) > 0 {
		return true
	}
	return sh.Age(now) < incidentTrackingGrace
}

func recommendations(sh *shipment.Shipment, iso28000, iso18602 StandardReport) []string {
	var recs []string
	if sh.Assessment == nil {
		recs = append(recs, "complete the security risk assessment before booking the voyage")
	}
	if sh.Security.RiskScore >= 60 && !sh.LR.Engaged() {
		recs = append(recs, "register high-risk cargo with Lloyd's Register third-party verification")
	}
	if sh.Seal.AppliedAt == nil {
		recs = append(recs, "apply and record a container seal")
	}
	if !sh.ISO18602Compliant {
		recs = append(recs, "export the ISO 18602 tracking message to establish format compliance")
	}
	if !iso28000.Ready {
		recs = append(recs, "address the missing ISO 28000 items before declaring the security program operational")
	}
	if !iso18602.Ready && sh.Status != shipment.StatusPlanning {
		recs = append(recs, "capture the missing tracking data points at the next port call")
	}
	return recs
}
