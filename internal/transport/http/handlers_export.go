package httptransport

import (
	"net/http"

	"seacert/internal/audit"
	"seacert/internal/iso18602"
	"seacert/pkg/requestcontext"
)

func (h *Handler) handleExportISO18602(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shipmentFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	doc, err := iso18602.Render(sh, requestcontext.Now(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.certification.MarkISO18602Exported(r.Context(), sh.ID); err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) handleExportIFTSTA(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shipmentFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	message := iso18602.RenderIFTSTA(sh, requestcontext.Now(r.Context()))
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(message))
}

func (h *Handler) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shipmentFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	report, err := h.compliance.Report(r.Context(), sh)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shipmentFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	entries, err := h.certification.AuditLog(r.Context(), audit.Filter{ShipmentID: sh.ID})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
