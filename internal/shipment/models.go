// Package shipment holds the aggregate root of the security and certification
// engine: the Shipment, its embedded filing sub-records, owned incidents and
// port verifications, and the status state machine.
package shipment

import (
	"time"

	"seacert/pkg/domain"
)

// SealType classifies the physical container seal.
type SealType string

const (
	SealBolt       SealType = "bolt"
	SealCable      SealType = "cable"
	SealElectronic SealType = "electronic"
	SealBarrier    SealType = "barrier"
)

// MonitoringTier selects the Lloyd's Register service level.
type MonitoringTier string

const (
	TierStandard MonitoringTier = "standard"
	TierPremium  MonitoringTier = "premium"
	TierSurveyor MonitoringTier = "surveyor"
)

// RiskLevel buckets the overall 0-100 risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DealView is the read-only projection of the closed deal this shipment was
// created from. The deal's lifecycle is independent; the shipment never
// reaches back into it.
type DealView struct {
	DealID        domain.DealID
	VIN           string
	VehicleMake   string
	VehicleModel  string
	VehicleYear   int
	DeclaredValue float64
	Currency      string
	DealerName    string
	DealerContact string
	BuyerName     string
	BuyerContact  string
	OriginPort    string
	DestinationPort    string
	DestinationCountry string
}

// Route describes the ocean leg.
type Route struct {
	OriginPort         string
	DestinationPort    string
	DestinationCountry string
	VesselName         string
	VoyageNumber       string
	IMOVesselNumber    string
}

// Schedule holds estimated and actual voyage times.
type Schedule struct {
	EstimatedDeparture *time.Time
	ActualDeparture    *time.Time
	EstimatedArrival   *time.Time
	ActualArrival      *time.Time
}

// Container identifies the shipping container.
type Container struct {
	Number string // ISO 6346: four letters + seven digits
	Type   string // e.g. 20GP, 40HC
}

// Is40ft reports whether the container is a forty-foot equivalent, which
// raises the VGM ceiling.
func (c Container) Is40ft() bool {
	return len(c.Type) >= 2 && c.Type[0] == '4'
}

// Seal tracks the container seal through application and the two mandatory
// verifications.
type Seal struct {
	Number    string
	Type      SealType
	AppliedAt *time.Time
	AppliedBy string

	OriginVerifiedAt      *time.Time
	OriginVerifier        string
	DestinationVerifiedAt *time.Time
	DestinationVerifier   string

	// Intact is true until a verifier observes a breach.
	Intact bool
}

// VerifiedAtOrigin reports whether the origin seal check has been recorded.
func (s Seal) VerifiedAtOrigin() bool { return s.OriginVerifiedAt != nil }

// VerifiedAtDestination reports whether the destination seal check has been recorded.
func (s Seal) VerifiedAtDestination() bool { return s.DestinationVerifiedAt != nil }

// Position is a GPS fix.
type Position struct {
	Latitude  float64
	Longitude float64
	UpdatedAt time.Time
}

// LloydsRecord tracks the third-party verification relationship.
type LloydsRecord struct {
	TrackingID       string
	Tier             MonitoringTier
	Status           string
	RegisteredAt     *time.Time
	LastReconciledAt *time.Time
	SurveyorName     string
	// PremiumQuoted is the monitoring premium in the deal currency, quoted
	// at registration time.
	PremiumQuoted float64
	// SafeDeliveryCertificate is set when LR issues the certificate of safe
	// delivery that gates released -> closed.
	SafeDeliveryCertificate string
}

// Engaged reports whether the shipment is registered with Lloyd's Register.
func (l LloydsRecord) Engaged() bool { return l.TrackingID != "" }

// SecurityProfile carries the derived security posture of the shipment.
type SecurityProfile struct {
	RiskLevel          RiskLevel
	RiskScore          int
	InsuranceAmount    float64
	InsuranceCurrency  string
	MonitoringTier     MonitoringTier
	CTPATCertified     bool
	HasOpenIncidents   bool
}

// Shipment is the aggregate root. All mutations go through the certification
// orchestrator; nothing here self-mutates on read.
type Shipment struct {
	ID             domain.ShipmentID
	TrackingNumber string
	Deal           DealView

	Status      Status
	PriorStatus Status // populated while in an overlay state
	DelayReason string

	Route     Route
	Schedule  Schedule
	Container Container
	Seal      Seal
	GPS       *Position

	Filings Filings
	LR      LloydsRecord
	Security SecurityProfile

	Assessment    *SecurityRiskAssessment
	Incidents     []SecurityIncident
	Verifications []PortVerification

	// ISO18602Compliant flips once the ISO 18602 XML export has been
	// generated at least once for this shipment.
	ISO18602Compliant bool

	// Version supports optimistic concurrency in the stores.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OpenSevereIncidents lists unresolved incidents of severe or critical
// severity; a non-empty result keeps the shipment in incident_open.
func (s *Shipment) OpenSevereIncidents() []SecurityIncident {
	var open []SecurityIncident
	for _, inc := range s.Incidents {
		if inc.Resolved {
			continue
		}
		if inc.Severity == SeveritySevere || inc.Severity == SeverityCritical {
			open = append(open, inc)
		}
	}
	return open
}

// VerificationOfType returns the first port verification of the given type.
func (s *Shipment) VerificationOfType(vt VerificationType) *PortVerification {
	for i := range s.Verifications {
		if s.Verifications[i].Type == vt {
			return &s.Verifications[i]
		}
	}
	return nil
}

// Age reports how long the shipment has existed at the given instant.
func (s *Shipment) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Clone returns a deep copy so read snapshots never alias the stored
// aggregate.
func (s *Shipment) Clone() *Shipment {
	cp := *s
	if s.GPS != nil {
		gps := *s.GPS
		cp.GPS = &gps
	}
	if s.Assessment != nil {
		a := *s.Assessment
		cp.Assessment = &a
	}
	cp.Schedule = cloneSchedule(s.Schedule)
	cp.Seal = cloneSeal(s.Seal)
	cp.Filings = s.Filings.clone()
	cp.LR = cloneLloyds(s.LR)
	cp.Incidents = append([]SecurityIncident(nil), s.Incidents...)
	cp.Verifications = make([]PortVerification, len(s.Verifications))
	for i, v := range s.Verifications {
		cp.Verifications[i] = v
		cp.Verifications[i].PhotoRefs = append([]string(nil), v.PhotoRefs...)
	}
	return &cp
}

func cloneSchedule(in Schedule) Schedule {
	return Schedule{
		EstimatedDeparture: cloneTime(in.EstimatedDeparture),
		ActualDeparture:    cloneTime(in.ActualDeparture),
		EstimatedArrival:   cloneTime(in.EstimatedArrival),
		ActualArrival:      cloneTime(in.ActualArrival),
	}
}

func cloneSeal(in Seal) Seal {
	out := in
	out.AppliedAt = cloneTime(in.AppliedAt)
	out.OriginVerifiedAt = cloneTime(in.OriginVerifiedAt)
	out.DestinationVerifiedAt = cloneTime(in.DestinationVerifiedAt)
	return out
}

func cloneLloyds(in LloydsRecord) LloydsRecord {
	out := in
	out.RegisteredAt = cloneTime(in.RegisteredAt)
	out.LastReconciledAt = cloneTime(in.LastReconciledAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
