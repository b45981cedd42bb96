package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	ShipmentsCreated prometheus.Counter
	StateTransitions *prometheus.CounterVec
	AuditAppends     prometheus.Counter
	LRCalls          *prometheus.CounterVec
	LRCallFailures   *prometheus.CounterVec
	DeadlineAlerts   *prometheus.CounterVec
	IncidentsOpened  *prometheus.CounterVec
	TickDuration     prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ShipmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seacert_shipments_created_total",
			Help: "Total number of shipments registered from closed deals",
		}),
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seacert_state_transitions_total",
			Help: "Shipment state transitions by source and target state",
		}, []string{"from", "to"}),
		AuditAppends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seacert_audit_entries_total",
			Help: "Total number of entries appended to the security audit log",
		}),
		LRCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seacert_lr_calls_total",
			Help: "Calls to the Lloyd's Register adapter by operation",
		}, []string{"operation"}),
		LRCallFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seacert_lr_call_failures_total",
			Help: "Failed Lloyd's Register calls by operation and error kind",
		}, []string{"operation", "kind"}),
		DeadlineAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seacert_deadline_alerts_total",
			Help: "Regulatory deadline alerts by regime and severity",
		}, []string{"regime", "severity"}),
		IncidentsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seacert_incidents_opened_total",
			Help: "Security incidents opened by type and severity",
		}, []string{"type", "severity"}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "seacert_tick_duration_seconds",
			Help:    "Duration of orchestrator tick sweeps",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
