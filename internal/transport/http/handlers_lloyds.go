package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"seacert/internal/lloyds"
	"seacert/internal/shipment"
	"seacert/pkg/domain"
	dErrors "seacert/pkg/domain-errors"
)

type lrRegisterRequest struct {
	Tier shipment.MonitoringTier `json:"tier,omitempty"`
}

func (h *Handler) handleLRRegister(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req lrRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.EngageLR(r.Context(), id, req.Tier)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

func (h *Handler) handleLRStatus(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	sh, err := h.certification.ReconcileWithLR(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"lr":  sh.LR,
		"gps": sh.GPS,
	})
}

type inspectionRequest struct {
	Kind      lloyds.InspectionKind `json:"kind"`
	Preferred time.Time             `json:"preferred_date"`
}

func (h *Handler) handleLRInspection(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	var req inspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Preferred.IsZero() {
		WriteError(w, dErrors.NewField(dErrors.CodeValidation, "preferred_date", "is required"))
		return
	}
	accepted, err := h.certification.RequestInspection(r.Context(), id, req.Kind, req.Preferred)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

func (h *Handler) handleLRCertificate(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shipmentFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !sh.LR.Engaged() {
		WriteError(w, dErrors.New(dErrors.CodeInvariantViolation,
			"shipment is not registered with Lloyd's Register"))
		return
	}
	if sh.LR.SafeDeliveryCertificate == "" {
		WriteJSON(w, http.StatusOK, map[string]any{"issued": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"issued":      true,
		"certificate": sh.LR.SafeDeliveryCertificate,
	})
}
