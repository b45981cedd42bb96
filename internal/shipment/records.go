package shipment

import (
	"time"

	"seacert/pkg/domain"
)

// FactorScores are the five 0-10 inputs to the risk scorer.
type FactorScores struct {
	Route        int // piracy and weather exposure on the ocean leg
	Value        int // vehicle value tier
	Destination  int // destination country security index
	Customs      int // complexity of the destination customs regime
	PortSecurity int // combined origin and destination port rating
}

// Sum returns the raw factor total before scaling.
func (f FactorScores) Sum() int {
	return f.Route + f.Value + f.Destination + f.Customs + f.PortSecurity
}

// SecurityRiskAssessment is the saved output of the risk scorer, one per
// shipment. Derived fields are always recomputed from the factors, never
// persisted stale.
type SecurityRiskAssessment struct {
	ID      domain.AssessmentID
	Factors FactorScores

	OverallScore         int
	Level                RiskLevel
	RecommendedInsurance float64
	InsuranceCurrency    string
	MonitoringTier       MonitoringTier
	LRRecommended        bool

	Mitigation string
	AssessedBy string
	AssessedAt time.Time
	Approved   bool
}

// IncidentType classifies a security incident.
type IncidentType string

const (
	IncidentDelay         IncidentType = "delay"
	IncidentDamage        IncidentType = "damage"
	IncidentTheft         IncidentType = "theft"
	IncidentAccident      IncidentType = "accident"
	IncidentCustoms       IncidentType = "customs"
	IncidentSealBreach    IncidentType = "seal_breach"
	IncidentGPSFailure    IncidentType = "gps_failure"
	IncidentDocumentation IncidentType = "documentation"
	IncidentWeather       IncidentType = "weather"
	IncidentPortSecurity  IncidentType = "port_security"
	IncidentOther         IncidentType = "other"
)

// IncidentSeverity grades a security incident. Severe and critical incidents
// push the shipment into incident_open.
type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityModerate IncidentSeverity = "moderate"
	SeveritySevere   IncidentSeverity = "severe"
	SeverityCritical IncidentSeverity = "critical"
)

// SecurityIncident is an owned child record of the shipment.
type SecurityIncident struct {
	ID         domain.IncidentID
	Type       IncidentType
	Severity   IncidentSeverity
	OccurredAt time.Time

	Location  string
	Latitude  *float64
	Longitude *float64

	Description        string
	PoliceReport       bool
	PoliceReportNumber string
	InsuranceClaim     bool
	InsuranceClaimNumber string
	LRNotified         bool

	ImmediateAction    string
	CorrectiveMeasures string

	Resolved   bool
	ResolvedAt *time.Time

	EstimatedCost float64
}

// VerificationType orders the four port checkpoints a shipment passes.
type VerificationType string

const (
	VerifyOriginDeparture    VerificationType = "origin_departure"
	VerifyTransitPort        VerificationType = "transit_port"
	VerifyDestinationArrival VerificationType = "destination_arrival"
	VerifyDestinationRelease VerificationType = "destination_release"
)

// verificationOrder gives the mandatory checkpoint sequence.
var verificationOrder = map[VerificationType]int{
	VerifyOriginDeparture:    1,
	VerifyTransitPort:        2,
	VerifyDestinationArrival: 3,
	VerifyDestinationRelease: 4,
}

// Rank returns the position of the checkpoint in the mandatory sequence,
// zero for unknown types.
func (v VerificationType) Rank() int { return verificationOrder[v] }

// VehicleCondition buckets the observed state of the vehicle.
type VehicleCondition string

const (
	ConditionExcellent VehicleCondition = "excellent"
	ConditionGood      VehicleCondition = "good"
	ConditionFair      VehicleCondition = "fair"
	ConditionPoor      VehicleCondition = "poor"
)

// PortVerification is a checkpoint inspection record owned by the shipment.
type PortVerification struct {
	ID   domain.VerificationID
	Type VerificationType

	PortName    string
	PortCountry string
	VerifiedAt  time.Time

	VerifierID          string
	VerifierName        string
	VerifierCredentials string

	SealNumberObserved string
	SealIntact         bool
	SealNotes          string

	VehicleCondition VehicleCondition
	OdometerKm       int

	CustomsCleared    bool
	DocumentsComplete bool
	PhotoRefs         []string

	Passed    bool
	Issues    string
	Signature string // HS256 token over the verification payload
}
