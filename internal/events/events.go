// Package events defines the typed events the engine emits and the
// synchronous in-process bus that delivers them. Within one shipment,
// delivery order matches the audit-log order because publication happens on
// the mutating goroutine after the audit entry commits.
package events

import (
	"seacert/internal/shipment"
	"seacert/pkg/domain"
)

// Event is implemented by every notification the engine emits.
type Event interface {
	EventName() string
	Shipment() domain.ShipmentID
}

type base struct {
	ShipmentID domain.ShipmentID
}

func (b base) Shipment() domain.ShipmentID { return b.ShipmentID }

type ShipmentCreated struct {
	base
	TrackingNumber string
}

func NewShipmentCreated(id domain.ShipmentID, tracking string) ShipmentCreated {
	return ShipmentCreated{base{id}, tracking}
}

func (ShipmentCreated) EventName() string { return "shipment_created" }

type RiskAssessed struct {
	base
	Score int
	Level shipment.RiskLevel
}

func NewRiskAssessed(id domain.ShipmentID, score int, level shipment.RiskLevel) RiskAssessed {
	return RiskAssessed{base{id}, score, level}
}

func (RiskAssessed) EventName() string { return "risk_assessed" }

type FilingAccepted struct {
	base
	Regime shipment.Regime
}

func NewFilingAccepted(id domain.ShipmentID, regime shipment.Regime) FilingAccepted {
	return FilingAccepted{base{id}, regime}
}

func (FilingAccepted) EventName() string { return "filing_accepted" }

type FilingRejected struct {
	base
	Regime shipment.Regime
}

func NewFilingRejected(id domain.ShipmentID, regime shipment.Regime) FilingRejected {
	return FilingRejected{base{id}, regime}
}

func (FilingRejected) EventName() string { return "filing_rejected" }

type DeadlineApproaching struct {
	base
	Regime    shipment.Regime
	HoursLeft float64
}

func NewDeadlineApproaching(id domain.ShipmentID, regime shipment.Regime, hoursLeft float64) DeadlineApproaching {
	return DeadlineApproaching{base{id}, regime, hoursLeft}
}

func (DeadlineApproaching) EventName() string { return "deadline_approaching" }

type DeadlineMissed struct {
	base
	Regime shipment.Regime
}

func NewDeadlineMissed(id domain.ShipmentID, regime shipment.Regime) DeadlineMissed {
	return DeadlineMissed{base{id}, regime}
}

func (DeadlineMissed) EventName() string { return "deadline_missed" }

type SealApplied struct {
	base
	SealNumber string
}

func NewSealApplied(id domain.ShipmentID, sealNumber string) SealApplied {
	return SealApplied{base{id}, sealNumber}
}

func (SealApplied) EventName() string { return "seal_applied" }

// SealPosition distinguishes the two mandatory seal checks.
type SealPosition string

const (
	SealAtOrigin      SealPosition = "origin"
	SealAtDestination SealPosition = "destination"
)

type SealVerified struct {
	base
	Position SealPosition
	Intact   bool
}

func NewSealVerified(id domain.ShipmentID, position SealPosition, intact bool) SealVerified {
	return SealVerified{base{id}, position, intact}
}

func (SealVerified) EventName() string { return "seal_verified" }

type IncidentReported struct {
	base
	IncidentID domain.IncidentID
	Severity   shipment.IncidentSeverity
}

func NewIncidentReported(id domain.ShipmentID, incidentID domain.IncidentID, severity shipment.IncidentSeverity) IncidentReported {
	return IncidentReported{base{id}, incidentID, severity}
}

func (IncidentReported) EventName() string { return "incident_reported" }

type IncidentResolved struct {
	base
	IncidentID domain.IncidentID
}

func NewIncidentResolved(id domain.ShipmentID, incidentID domain.IncidentID) IncidentResolved {
	return IncidentResolved{base{id}, incidentID}
}

func (IncidentResolved) EventName() string { return "incident_resolved" }

type LRStatusChanged struct {
	base
	From string
	To   string
}

func NewLRStatusChanged(id domain.ShipmentID, from, to string) LRStatusChanged {
	return LRStatusChanged{base{id}, from, to}
}

func (LRStatusChanged) EventName() string { return "lr_status_changed" }

type StateTransition struct {
	base
	From shipment.Status
	To   shipment.Status
}

func NewStateTransition(id domain.ShipmentID, from, to shipment.Status) StateTransition {
	return StateTransition{base{id}, from, to}
}

func (StateTransition) EventName() string { return "state_transition" }

type CertificateIssued struct {
	base
	CertificateID string
}

func NewCertificateIssued(id domain.ShipmentID, certificateID string) CertificateIssued {
	return CertificateIssued{base{id}, certificateID}
}

func (CertificateIssued) EventName() string { return "certificate_issued" }
