package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mssola/useragent"

	"seacert/pkg/domain"
	"seacert/pkg/requestcontext"
)

// Recorder builds and appends audit entries enriched with request-scoped
// actor and client metadata. It is the single write path into the log.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record appends one entry for the shipment. The actor, IP, and user agent
// come from the context; the caller supplies only the domain facts.
func (r *Recorder) Record(ctx context.Context, shipmentID domain.ShipmentID, action ActionType, description string, related ...string) (Entry, error) {
	entry := Entry{
		ShipmentID:  shipmentID,
		Action:      action,
		Timestamp:   requestcontext.Now(ctx),
		ActorID:     requestcontext.ActorID(ctx),
		ActorName:   requestcontext.ActorName(ctx),
		Description: description,
		IPAddress:   requestcontext.ClientIP(ctx),
		UserAgent:   normalizeUserAgent(requestcontext.UserAgent(ctx)),
	}
	if entry.ActorID == "" {
		entry.ActorID = "system"
		entry.ActorName = "Certification Engine"
	}
	if len(related) >= 2 {
		entry.RelatedType = related[0]
		entry.RelatedID = related[1]
	}

	stored, err := r.store.Append(ctx, entry)
	if err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"shipment_id", shipmentID,
			"action", action,
			"error", err,
		)
		return Entry{}, err
	}
	r.logger.InfoContext(ctx, description,
		"log_type", "audit",
		"shipment_id", shipmentID,
		"action", action,
		"seq", stored.Seq,
		"actor_id", stored.ActorID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return stored, nil
}

// Store exposes the underlying store for read paths.
func (r *Recorder) Store() Store { return r.store }

// normalizeUserAgent compacts a raw User-Agent header into a short
// browser/OS summary so the log stays readable; unparseable agents are kept
// verbatim.
func normalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}
