package shipment

import (
	"fmt"
	"strings"
	"time"

	dErrors "seacert/pkg/domain-errors"
)

// Status is the shipment lifecycle state.
type Status string

const (
	StatusPlanning           Status = "planning"
	StatusRiskAssessed       Status = "risk_assessed"
	StatusPreShipmentReady   Status = "pre_shipment_ready"
	StatusInTransit          Status = "in_transit"
	StatusArrivedDestination Status = "arrived_destination"
	StatusCustomsCleared     Status = "customs_cleared"
	StatusReleased           Status = "released"
	StatusClosed             Status = "closed"

	// Overlay states: entering one preserves the prior status and exiting
	// restores it.
	StatusDelayed      Status = "delayed"
	StatusIncidentOpen Status = "incident_open"

	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Overlay reports whether the status is one of the flag-like side branches.
func (s Status) Overlay() bool {
	return s == StatusDelayed || s == StatusIncidentOpen
}

// forwardEdges is the main progression of §planning through closed.
var forwardEdges = map[Status]Status{
	StatusPlanning:           StatusRiskAssessed,
	StatusRiskAssessed:       StatusPreShipmentReady,
	StatusPreShipmentReady:   StatusInTransit,
	StatusInTransit:          StatusArrivedDestination,
	StatusArrivedDestination: StatusCustomsCleared,
	StatusCustomsCleared:     StatusReleased,
	StatusReleased:           StatusClosed,
}

// AMSLeadTime is the US 24-hour advance manifest rule.
const AMSLeadTime = 24 * time.Hour

// MissingPreconditions returns the identifiers of every unmet requirement for
// moving the shipment to target at the given instant. An empty result means
// the transition is allowed. The shipment is not modified.
func (s *Shipment) MissingPreconditions(target Status, now time.Time) []string {
	switch target {
	case StatusRiskAssessed:
		var missing []string
		if s.Assessment == nil {
			missing = append(missing, "risk_assessment_saved")
		}
		return missing
	case StatusPreShipmentReady:
		return s.missingPreShipmentReady()
	case StatusInTransit:
		return s.missingInTransit(now)
	case StatusArrivedDestination:
		var missing []string
		if s.VerificationOfType(VerifyDestinationArrival) == nil {
			missing = append(missing, "destination_arrival_verification")
		}
		return missing
	case StatusCustomsCleared:
		var missing []string
		if regime, status, _ := s.Filings.ImportFiling(s.Route.DestinationCountry); regime != "" && status != FilingAccepted {
			missing = append(missing, "import_filing_accepted")
		}
		if !s.Seal.VerifiedAtDestination() {
			missing = append(missing, "seal_verified_destination")
		}
		return missing
	case StatusReleased:
		var missing []string
		if v := s.VerificationOfType(VerifyDestinationRelease); v == nil || !v.Passed {
			missing = append(missing, "destination_release_verification")
		}
		return missing
	case StatusClosed:
		var missing []string
		if s.LR.Engaged() && s.LR.SafeDeliveryCertificate == "" {
			missing = append(missing, "lr_safe_delivery_certificate")
		}
		return missing
	default:
		return nil
	}
}

func (s *Shipment) missingPreShipmentReady() []string {
	var missing []string
	if s.Seal.Number == "" || s.Seal.AppliedAt == nil {
		missing = append(missing, "seal_applied")
	}
	if !s.Seal.VerifiedAtOrigin() {
		missing = append(missing, "seal_verified_origin")
	}
	if !s.Filings.VGM.Certified() {
		missing = append(missing, "vgm_certified")
	}
	if regime, status, _ := s.Filings.ImportFiling(s.Route.DestinationCountry); regime != "" &&
		status != FilingSubmitted && status != FilingAccepted {
		missing = append(missing, fmt.Sprintf("import_filing_submitted(%s)", regime))
	}
	if s.OriginIsUS() && !s.Filings.AES.Complete() {
		missing = append(missing, "aes_filing")
	}
	if (s.Security.RiskLevel == RiskHigh || s.Security.RiskLevel == RiskCritical) && !s.LR.Engaged() {
		missing = append(missing, "lr_registration")
	}
	if h := s.Filings.Hazmat; h.ContainsHazmat {
		if h.UNNumber == "" || h.IMDGClass == "" || h.EmergencyContact == "" {
			missing = append(missing, "hazmat_fields")
		}
	}
	return missing
}

func (s *Shipment) missingInTransit(now time.Time) []string {
	var missing []string
	if v := s.VerificationOfType(VerifyOriginDeparture); v == nil || !v.Passed {
		missing = append(missing, "origin_departure_verification")
	}
	departure := s.Schedule.ActualDeparture
	if departure == nil {
		missing = append(missing, "actual_departure_set")
		return missing
	}
	// When AMS applies, departure must respect the 24-hour advance rule.
	if s.Route.DestinationCountry == "US" && s.Filings.AMS.SubmittedAt != nil {
		if departure.Sub(*s.Filings.AMS.SubmittedAt) < AMSLeadTime {
			missing = append(missing, "ams_24h_rule")
		}
	}
	return missing
}

func (s *Shipment) OriginIsUS() bool {
	port := strings.ToUpper(s.Route.OriginPort)
	return strings.HasPrefix(port, "US") // UN/LOCODE ports carry the country prefix
}

// Transition moves the shipment to target, enforcing edges and preconditions.
// A transition to the current status is a no-op and returns false with no
// error; callers use the flag to skip audit writes on idempotent replays.
func (s *Shipment) Transition(target Status, now time.Time) (bool, error) {
	if target == s.Status {
		return false, nil
	}
	if s.Status.Terminal() {
		return false, dErrors.Newf(dErrors.CodeIllegalTransition,
			"shipment is %s and accepts no further transitions", s.Status)
	}
	if target == StatusCancelled {
		s.Status = StatusCancelled
		s.PriorStatus = ""
		return true, nil
	}
	if target.Overlay() {
		return false, dErrors.Newf(dErrors.CodeIllegalTransition,
			"%s is entered through its own operation, not a direct transition", target)
	}
	if s.Status.Overlay() {
		return false, dErrors.Newf(dErrors.CodeIllegalTransition,
			"shipment is %s; clear the overlay before progressing", s.Status)
	}
	if forwardEdges[s.Status] != target {
		return false, dErrors.Newf(dErrors.CodeIllegalTransition,
			"no edge from %s to %s", s.Status, target)
	}
	if missing := s.MissingPreconditions(target, now); len(missing) > 0 {
		return false, dErrors.Newf(dErrors.CodeIllegalTransition,
			"cannot move %s to %s, missing: %s", s.Status, target, strings.Join(missing, ", "))
	}
	s.Status = target
	return true, nil
}

// EnterDelay places the shipment in the delayed overlay, remembering the
// status to restore.
func (s *Shipment) EnterDelay(reason string) error {
	if s.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeIllegalTransition,
			"shipment is %s and cannot be delayed", s.Status)
	}
	if s.Status == StatusDelayed {
		s.DelayReason = reason
		return nil
	}
	if s.Status == StatusIncidentOpen {
		return dErrors.New(dErrors.CodeIllegalTransition,
			"shipment has an open incident; resolve it before recording a delay")
	}
	s.PriorStatus = s.Status
	s.Status = StatusDelayed
	s.DelayReason = reason
	return nil
}

// ExitDelay restores the status preserved when the delay was entered.
func (s *Shipment) ExitDelay() error {
	if s.Status != StatusDelayed {
		return dErrors.New(dErrors.CodeIllegalTransition, "shipment is not delayed")
	}
	s.Status = s.PriorStatus
	s.PriorStatus = ""
	s.DelayReason = ""
	return nil
}

// EnterIncident places the shipment in the incident_open overlay.
func (s *Shipment) EnterIncident() {
	if s.Status.Terminal() || s.Status == StatusIncidentOpen {
		return
	}
	if s.Status == StatusDelayed {
		// An open severe incident outranks a delay; keep the original prior.
		s.Status = StatusIncidentOpen
		return
	}
	s.PriorStatus = s.Status
	s.Status = StatusIncidentOpen
}

// ExitIncident restores the preserved status once all severe and critical
// incidents are resolved.
func (s *Shipment) ExitIncident() error {
	if s.Status != StatusIncidentOpen {
		return dErrors.New(dErrors.CodeIllegalTransition, "shipment has no open incident overlay")
	}
	if len(s.OpenSevereIncidents()) > 0 {
		return dErrors.New(dErrors.CodeIllegalTransition, "severe or critical incidents remain unresolved")
	}
	s.Status = s.PriorStatus
	s.PriorStatus = ""
	return nil
}
