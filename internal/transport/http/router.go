package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seacert/internal/certification"
	"seacert/internal/compliance"
	"seacert/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// Handler carries the services the routes delegate to.
type Handler struct {
	certification *certification.Service
	compliance    *compliance.Reporter
	logger        *slog.Logger
}

func NewHandler(cert *certification.Service, reporter *compliance.Reporter, logger *slog.Logger) *Handler {
	return &Handler{
		certification: cert,
		compliance:    reporter,
		logger:        logger,
	}
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker func(r *http.Request) error

// NewRouter assembles the full route table. Shipment routes require a valid
// operator token; health and metrics do not.
func NewRouter(h *Handler, validator middleware.JWTValidator, health HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req); err != nil {
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/shipments", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))
		r.Use(middleware.ContentTypeJSON)

		r.Post("/", h.handleCreateShipment)
		r.Get("/", h.handleListShipments)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetShipment)
			r.Post("/risk-factors", h.handleAssessRisk)
			r.Post("/filings/{regime}", h.handleRecordFiling)
			r.Post("/seal", h.handleApplySeal)
			r.Post("/seal/verify", h.handleVerifySeal)
			r.Post("/verifications", h.handleAddVerification)
			r.Post("/transition", h.handleTransition)
			r.Post("/transition/clear-delay", h.handleClearDelay)
			r.Post("/incidents", h.handleReportIncident)
			r.Post("/incidents/{incidentID}/resolve", h.handleResolveIncident)

			r.Post("/lr/register", h.handleLRRegister)
			r.Get("/lr/status", h.handleLRStatus)
			r.Post("/lr/inspections", h.handleLRInspection)
			r.Get("/lr/certificate", h.handleLRCertificate)

			r.Get("/export/iso18602.xml", h.handleExportISO18602)
			r.Get("/export/iftsta", h.handleExportIFTSTA)
			r.Get("/compliance", h.handleComplianceReport)
			r.Get("/audit-log", h.handleAuditLog)
		})
	})

	return r
}
