// Package lloyds is the adapter for the Lloyd's Register cargo tracking
// service: registration, status polls, inspection orders, certificate
// retrieval, and incident reporting. Every call is best-effort; failures are
// normalized into AdapterError and never corrupt shipment state.
package lloyds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seacert/internal/shipment"
	dErrors "seacert/pkg/domain-errors"
)

// ErrorKind is the normalized adapter failure taxonomy.
type ErrorKind string

const (
	ErrTimeout      ErrorKind = "timeout"
	ErrHTTP         ErrorKind = "http"
	ErrMalformed    ErrorKind = "malformed"
	ErrUnauthorized ErrorKind = "unauthorized"
	ErrRateLimited  ErrorKind = "rate_limited"
)

// AdapterError wraps adapter failures with a kind the orchestrator can act
// on: retry for transient kinds, surface for the rest.
type AdapterError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AdapterError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("lloyds %s [%s]: %s: %v", e.Op, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("lloyds %s [%s]: %s", e.Op, e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Underlying }

// Code maps the adapter kind onto the shared error taxonomy for transport.
func (e *AdapterError) Code() dErrors.Code {
	switch e.Kind {
	case ErrTimeout:
		return dErrors.CodeAdapterTimeout
	case ErrMalformed:
		return dErrors.CodeAdapterMalformed
	case ErrUnauthorized:
		return dErrors.CodeAdapterUnauthorized
	case ErrRateLimited:
		return dErrors.CodeAdapterRateLimited
	default:
		return dErrors.CodeAdapterHTTP
	}
}

// NewAdapterError builds a normalized adapter error. Timeouts, rate limits,
// and server-side HTTP failures are retryable; the rest are not.
func NewAdapterError(kind ErrorKind, op, message string, underlying error) *AdapterError {
	retryable := kind == ErrTimeout || kind == ErrRateLimited || kind == ErrHTTP
	return &AdapterError{
		Kind:       kind,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks whether an error is worth retrying.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// Registration is the payload sent when enrolling a shipment.
type Registration struct {
	ShipmentTracking string
	VesselIMO        string
	ContainerNumber  string
	OriginPort       string
	DestinationPort  string
	DeclaredValue    float64
	Currency         string
	Tier             shipment.MonitoringTier
}

// Status is the non-authoritative view LR holds of a shipment.
type Status struct {
	TrackingID   string
	State        string
	Latitude     *float64
	Longitude    *float64
	SurveyorName string
	LastNote     string
	UpdatedAt    time.Time
}

// InspectionKind names the third-party inspections LR performs.
type InspectionKind string

const (
	InspectOrigin      InspectionKind = "origin"
	InspectInTransit   InspectionKind = "in_transit"
	InspectDestination InspectionKind = "destination"
)

// Certificate is an issued LR document, typically the certificate of safe
// delivery that closes a shipment.
type Certificate struct {
	ID          string
	TrackingID  string
	Kind        string
	IssuedAt    time.Time
	DocumentURL string
}

// IncidentReport is the subset of a SecurityIncident forwarded to LR.
type IncidentReport struct {
	IncidentID  string
	Type        string
	Severity    string
	Description string
	OccurredAt  time.Time
}

// Client is the adapter surface the orchestrator depends on. The HTTP
// implementation talks to the real service; the mock returns deterministic
// data seeded from the tracking number for development and tests.
type Client interface {
	Register(ctx context.Context, reg Registration) (trackingID string, err error)
	FetchStatus(ctx context.Context, trackingID string) (*Status, error)
	RequestInspection(ctx context.Context, trackingID string, kind InspectionKind, preferred time.Time) (bool, error)
	FetchCertificate(ctx context.Context, trackingID string) (*Certificate, error)
	ReportIncident(ctx context.Context, trackingID string, report IncidentReport) (bool, error)
	QuotePremium(ctx context.Context, value float64, route string, tier shipment.MonitoringTier) (float64, error)
}
