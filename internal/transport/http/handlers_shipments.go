package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"seacert/internal/certification"
	"seacert/internal/events"
	"seacert/internal/shipment"
	"seacert/internal/shipment/store"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
)

type createShipmentRequest struct {
	DealID             string  `json:"deal_id"`
	VIN                string  `json:"vin"`
	VehicleMake        string  `json:"vehicle_make"`
	VehicleModel       string  `json:"vehicle_model"`
	VehicleYear        int     `json:"vehicle_year"`
	DeclaredValue      float64 `json:"declared_value"`
	Currency           string  `json:"currency"`
	DealerName         string  `json:"dealer_name"`
	DealerContact      string  `json:"dealer_contact"`
	BuyerName          string  `json:"buyer_name"`
	BuyerContact       string  `json:"buyer_contact"`
	OriginPort         string  `json:"origin_port"`
	DestinationPort    string  `json:"destination_port"`
	DestinationCountry string  `json:"destination_country"`

	VesselName      string `json:"vessel_name,omitempty"`
	VoyageNumber    string `json:"voyage_number,omitempty"`
	IMOVesselNumber string `json:"imo_vessel_number,omitempty"`

	ContainerNumber string `json:"container_number,omitempty"`
	ContainerType   string `json:"container_type,omitempty"`

	EstimatedDeparture *time.Time `json:"estimated_departure,omitempty"`
	EstimatedArrival   *time.Time `json:"estimated_arrival,omitempty"`
}

func (h *Handler) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	dealID, err := domain.ParseDealID(req.DealID)
	if err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.RegisterShipment(r.Context(), certification.NewShipmentInput{
		Deal: shipment.DealView{
			DealID:             dealID,
			VIN:                req.VIN,
			VehicleMake:        req.VehicleMake,
			VehicleModel:       req.VehicleModel,
			VehicleYear:        req.VehicleYear,
			DeclaredValue:      req.DeclaredValue,
			Currency:           req.Currency,
			DealerName:         req.DealerName,
			DealerContact:      req.DealerContact,
			BuyerName:          req.BuyerName,
			BuyerContact:       req.BuyerContact,
			OriginPort:         req.OriginPort,
			DestinationPort:    req.DestinationPort,
			DestinationCountry: req.DestinationCountry,
		},
		Route: shipment.Route{
			OriginPort:         req.OriginPort,
			DestinationPort:    req.DestinationPort,
			DestinationCountry: req.DestinationCountry,
			VesselName:         req.VesselName,
			VoyageNumber:       req.VoyageNumber,
			IMOVesselNumber:    req.IMOVesselNumber,
		},
		Schedule: shipment.Schedule{
			EstimatedDeparture: req.EstimatedDeparture,
			EstimatedArrival:   req.EstimatedArrival,
		},
		Container: shipment.Container{
			Number: req.ContainerNumber,
			Type:   req.ContainerType,
		},
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sh)
}

func (h *Handler) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shipmentFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

func (h *Handler) handleListShipments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status:             shipment.Status(q.Get("status")),
		RiskLevel:          shipment.RiskLevel(q.Get("risk_level")),
		DestinationCountry: q.Get("destination_country"),
	}
	shipments, err := h.certification.List(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"shipments": shipments})
}

type riskFactorsRequest struct {
	Route        int    `json:"route"`
	Value        int    `json:"value"`
	Destination  int    `json:"destination"`
	Customs      int    `json:"customs"`
	PortSecurity int    `json:"port_security"`
	Mitigation   string `json:"mitigation,omitempty"`
}

func (h *Handler) handleAssessRisk(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req riskFactorsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.AssessRisk(r.Context(), id, shipment.FactorScores{
		Route:        req.Route,
		Value:        req.Value,
		Destination:  req.Destination,
		Customs:      req.Customs,
		PortSecurity: req.PortSecurity,
	}, req.Mitigation)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

func (h *Handler) handleRecordFiling(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	regime := shipment.Regime(chi.URLParam(r, "regime"))

	update, err := decodeFiling(r, regime)
	if err != nil {
		WriteError(w, err)
		return
	}
	result, err := h.certification.RecordFiling(r.Context(), id, regime, update)
	if err != nil {
		WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	WriteJSON(w, status, map[string]any{
		"shipment": result.Shipment,
		"warning":  result.Warning,
		"replayed": result.Replayed,
	})
}

// decodeFiling decodes the regime-specific body into the matching update
// slot.
func decodeFiling(r *http.Request, regime shipment.Regime) (certification.FilingUpdate, error) {
	var update certification.FilingUpdate
	var err error
	switch regime {
	case shipment.RegimeVGM:
		update.VGM = &shipment.VGMFiling{}
		err = decodeJSON(r, update.VGM)
	case shipment.RegimeAMS:
		update.AMS = &shipment.AMSFiling{}
		err = decodeJSON(r, update.AMS)
	case shipment.RegimeACI:
		update.ACI = &shipment.ACIFiling{}
		err = decodeJSON(r, update.ACI)
	case shipment.RegimeAES:
		update.AES = &shipment.AESFiling{}
		err = decodeJSON(r, update.AES)
	case shipment.RegimeENS:
		update.ENS = &shipment.ENSFiling{}
		err = decodeJSON(r, update.ENS)
	case shipment.RegimeISPS:
		update.ISPS = &shipment.ISPSRecord{}
		err = decodeJSON(r, update.ISPS)
	case shipment.RegimeCustoms:
		update.Customs = &shipment.CustomsFiling{}
		err = decodeJSON(r, update.Customs)
	case shipment.RegimeHazmat:
		update.Hazmat = &shipment.HazmatDeclaration{}
		err = decodeJSON(r, update.Hazmat)
	case shipment.RegimeBillOfLading:
		update.BillOfLading = &shipment.BillOfLading{}
		err = decodeJSON(r, update.BillOfLading)
	default:
		err = dErrors.Newf(dErrors.CodeBadRequest, "unknown filing regime %q", regime)
	}
	return update, err
}

type applySealRequest struct {
	Number    string            `json:"number"`
	Type      shipment.SealType `json:"type"`
	AppliedBy string            `json:"applied_by"`
}

func (h *Handler) handleApplySeal(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req applySealRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.ApplySeal(r.Context(), id, req.Number, req.Type, req.AppliedBy)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

type verifySealRequest struct {
	Position events.SealPosition `json:"position"`
	Verifier string              `json:"verifier"`
	Intact   *bool               `json:"intact"`
}

func (h *Handler) handleVerifySeal(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req verifySealRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Intact == nil {
		WriteError(w, dErrors.NewField(dErrors.CodeValidation, "intact", "is required"))
		return
	}
	sh, err := h.certification.VerifySeal(r.Context(), id, req.Position, req.Verifier, *req.Intact)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

type portVerificationRequest struct {
	Type                shipment.VerificationType `json:"type"`
	PortName            string                    `json:"port_name"`
	PortCountry         string                    `json:"port_country"`
	VerifierID          string                    `json:"verifier_id"`
	VerifierName        string                    `json:"verifier_name"`
	VerifierCredentials string                    `json:"verifier_credentials"`
	SealNumberObserved  string                    `json:"seal_number_observed"`
	SealIntact          bool                      `json:"seal_intact"`
	SealNotes           string                    `json:"seal_notes"`
	VehicleCondition    shipment.VehicleCondition `json:"vehicle_condition"`
	OdometerKm          int                       `json:"odometer_km"`
	CustomsCleared      bool                      `json:"customs_cleared"`
	DocumentsComplete   bool                      `json:"documents_complete"`
	PhotoRefs           []string                  `json:"photo_refs"`
	Passed              bool                      `json:"passed"`
	Issues              string                    `json:"issues"`
}

func (h *Handler) handleAddVerification(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req portVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.AddPortVerification(r.Context(), id, shipment.PortVerification{
		Type:                req.Type,
		PortName:            req.PortName,
		PortCountry:         req.PortCountry,
		VerifierID:          req.VerifierID,
		VerifierName:        req.VerifierName,
		VerifierCredentials: req.VerifierCredentials,
		SealNumberObserved:  req.SealNumberObserved,
		SealIntact:          req.SealIntact,
		SealNotes:           req.SealNotes,
		VehicleCondition:    req.VehicleCondition,
		OdometerKm:          req.OdometerKm,
		CustomsCleared:      req.CustomsCleared,
		DocumentsComplete:   req.DocumentsComplete,
		PhotoRefs:           req.PhotoRefs,
		Passed:              req.Passed,
		Issues:              req.Issues,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sh)
}

type transitionRequest struct {
	Target shipment.Status `json:"target"`
	Reason string          `json:"reason,omitempty"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var sh *shipment.Shipment
	switch req.Target {
	case shipment.StatusDelayed:
		sh, err = h.certification.Delay(r.Context(), id, req.Reason)
	case shipment.StatusCancelled:
		sh, err = h.certification.Cancel(r.Context(), id, req.Reason)
	case shipment.StatusInTransit:
		sh, err = h.certification.Depart(r.Context(), id)
	default:
		sh, err = h.certification.TransitionTo(r.Context(), id, req.Target)
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

func (h *Handler) handleClearDelay(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.ClearDelay(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

type incidentRequest struct {
	Type                 shipment.IncidentType     `json:"type"`
	Severity             shipment.IncidentSeverity `json:"severity"`
	Location             string                    `json:"location"`
	Latitude             *float64                  `json:"latitude,omitempty"`
	Longitude            *float64                  `json:"longitude,omitempty"`
	Description          string                    `json:"description"`
	PoliceReport         bool                      `json:"police_report"`
	PoliceReportNumber   string                    `json:"police_report_number"`
	InsuranceClaim       bool                      `json:"insurance_claim"`
	InsuranceClaimNumber string                    `json:"insurance_claim_number"`
	ImmediateAction      string                    `json:"immediate_action"`
	EstimatedCost        float64                   `json:"estimated_cost"`
}

func (h *Handler) handleReportIncident(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req incidentRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	incident, err := h.certification.ReportIncident(r.Context(), id, certification.IncidentInput{
		Type:                 req.Type,
		Severity:             req.Severity,
		Location:             req.Location,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		Description:          req.Description,
		PoliceReport:         req.PoliceReport,
		PoliceReportNumber:   req.PoliceReportNumber,
		InsuranceClaim:       req.InsuranceClaim,
		InsuranceClaimNumber: req.InsuranceClaimNumber,
		ImmediateAction:      req.ImmediateAction,
		EstimatedCost:        req.EstimatedCost,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, incident)
}

type resolveIncidentRequest struct {
	CorrectiveMeasures string `json:"corrective_measures"`
}

func (h *Handler) handleResolveIncident(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	incidentID, err := domain.ParseIncidentID(chi.URLParam(r, "incidentID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req resolveIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.ResolveIncident(r.Context(), id, incidentID, req.CorrectiveMeasures)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

func (h *Handler) shipmentFromPath(r *http.Request) (*shipment.Shipment, error) {
	raw := chi.URLParam(r, "id")
	if id, err := domain.ParseShipmentID(raw); err == nil {
		return h.certification.Get(r.Context(), id)
	}
	// Tracking numbers are accepted anywhere a shipment id is.
	return h.certification.GetByTracking(r.Context(), raw)
}
