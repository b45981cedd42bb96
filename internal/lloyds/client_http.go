package lloyds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"seacert/internal/platform/config"
	"seacert/internal/shipment"
)

var tracer = otel.Tracer("seacert/lloyds")

// HTTPClient talks to the real LR cargo tracking API. Mutating calls get the
// longer write timeout; reads the shorter one. Context cancellation is
// honored on every call.
type HTTPClient struct {
	rest         *resty.Client
	writeTimeout time.Duration
	readTimeout  time.Duration
}

// NewHTTPClient builds a client from config. Callers are expected to have
// checked MockMode first; this constructor assumes credentials are present.
func NewHTTPClient(cfg config.LloydsConfig) *HTTPClient {
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("X-Client-ID", cfg.ClientID).
		SetHeader("Accept", "application/json")
	return &HTTPClient{
		rest:         rest,
		writeTimeout: cfg.WriteTimeout,
		readTimeout:  cfg.ReadTimeout,
	}
}

type registerResponse struct {
	TrackingID string `json:"tracking_id"`
}

type statusResponse struct {
	TrackingID   string   `json:"tracking_id"`
	State        string   `json:"state"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	SurveyorName string   `json:"surveyor_name"`
	LastNote     string   `json:"last_note"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type certificateResponse struct {
	ID          string    `json:"id"`
	TrackingID  string    `json:"tracking_id"`
	Kind        string    `json:"kind"`
	IssuedAt    time.Time `json:"issued_at"`
	DocumentURL string    `json:"document_url"`
}

type ackResponse struct {
	Accepted bool `json:"accepted"`
}

func (c *HTTPClient) Register(ctx context.Context, reg Registration) (string, error) {
	const op = "register"
	var out registerResponse
	err := c.call(ctx, op, c.writeTimeout, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]any{
				"shipment_tracking": reg.ShipmentTracking,
				"vessel_imo":        reg.VesselIMO,
				"container_number":  reg.ContainerNumber,
				"origin_port":       reg.OriginPort,
				"destination_port":  reg.DestinationPort,
				"declared_value":    reg.DeclaredValue,
				"currency":          reg.Currency,
				"tier":              string(reg.Tier),
			}).
			SetResult(&out).
			Post("/shipments")
	})
	if err != nil {
		return "", err
	}
	if out.TrackingID == "" {
		return "", NewAdapterError(ErrMalformed, op, "response carried no tracking id", nil)
	}
	return out.TrackingID, nil
}

func (c *HTTPClient) FetchStatus(ctx context.Context, trackingID string) (*Status, error) {
	const op = "fetch_status"
	var out statusResponse
	err := c.call(ctx, op, c.readTimeout, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&out).Get("/shipments/" + trackingID + "/status")
	})
	if err != nil {
		return nil, err
	}
	if out.TrackingID == "" || out.State == "" {
		return nil, NewAdapterError(ErrMalformed, op, "status response missing required fields", nil)
	}
	return &Status{
		TrackingID:   out.TrackingID,
		State:        out.State,
		Latitude:     out.Latitude,
		Longitude:    out.Longitude,
		SurveyorName: out.SurveyorName,
		LastNote:     out.LastNote,
		UpdatedAt:    out.UpdatedAt,
	}, nil
}

func (c *HTTPClient) RequestInspection(ctx context.Context, trackingID string, kind InspectionKind, preferred time.Time) (bool, error) {
	const op = "request_inspection"
	var out ackResponse
	err := c.call(ctx, op, c.writeTimeout, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]any{
				"kind":           string(kind),
				"preferred_date": preferred.UTC().Format("2006-01-02"),
			}).
			SetResult(&out).
			Post("/shipments/" + trackingID + "/inspections")
	})
	if err != nil {
		return false, err
	}
	return out.Accepted, nil
}

func (c *HTTPClient) FetchCertificate(ctx context.Context, trackingID string) (*Certificate, error) {
	const op = "fetch_certificate"
	var out certificateResponse
	err := c.call(ctx, op, c.readTimeout, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&out).Get("/shipments/" + trackingID + "/certificate")
	})
	if err != nil {
		var ae *AdapterError
		if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
			// Not yet issued; that's a normal answer, not a failure.
			return nil, nil
		}
		return nil, err
	}
	if out.ID == "" {
		return nil, NewAdapterError(ErrMalformed, op, "certificate response missing id", nil)
	}
	return &Certificate{
		ID:          out.ID,
		TrackingID:  out.TrackingID,
		Kind:        out.Kind,
		IssuedAt:    out.IssuedAt,
		DocumentURL: out.DocumentURL,
	}, nil
}

func (c *HTTPClient) ReportIncident(ctx context.Context, trackingID string, report IncidentReport) (bool, error) {
	const op = "report_incident"
	var out ackResponse
	err := c.call(ctx, op, c.writeTimeout, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]any{
				"incident_id": report.IncidentID,
				"type":        report.Type,
				"severity":    report.Severity,
				"description": report.Description,
				"occurred_at": report.OccurredAt.UTC(),
			}).
			SetResult(&out).
			Post("/shipments/" + trackingID + "/incidents")
	})
	if err != nil {
		return false, err
	}
	return out.Accepted, nil
}

func (c *HTTPClient) QuotePremium(_ context.Context, value float64, route string, tier shipment.MonitoringTier) (float64, error) {
	// The premium formula is owned by this engine, not the remote service.
	return Premium(value, route, tier), nil
}

// call runs one HTTP exchange with a bounded timeout, a trace span, and
// normalized error mapping.
func (c *HTTPClient) call(ctx context.Context, op string, timeout time.Duration, do func(*resty.Request) (*resty.Response, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "lloyds."+op, trace.WithAttributes(
		attribute.String("lloyds.op", op),
	))
	defer span.End()

	resp, err := do(c.rest.R().SetContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewAdapterError(ErrTimeout, op, fmt.Sprintf("no response within %s", timeout), err)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return NewAdapterError(ErrHTTP, op, "transport failure", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		ae := NewAdapterError(ErrUnauthorized, op, "credentials rejected", nil)
		ae.StatusCode = resp.StatusCode()
		return ae
	case resp.StatusCode() == http.StatusTooManyRequests:
		ae := NewAdapterError(ErrRateLimited, op, "rate limited", nil)
		ae.StatusCode = resp.StatusCode()
		return ae
	default:
		ae := NewAdapterError(ErrHTTP, op, fmt.Sprintf("unexpected status %d", resp.StatusCode()), nil)
		ae.StatusCode = resp.StatusCode()
		if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
			ae.Retryable = false
		}
		return ae
	}
}
