package certification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"seacert/internal/audit"
	"seacert/internal/events"
	"seacert/internal/shipment"
	"seacert/internal/shipment/store"
	"seacert/pkg/domain"
	"seacert/pkg/requestcontext"
)

// tickConcurrency bounds the per-shipment fan-out of one sweep.
const tickConcurrency = 8

// Ticker runs the periodic sweep: regulatory deadline checks, LR
// reconciliation, and retries of transitions that were blocked when their
// triggering record arrived. Alerts are deduplicated so a missed deadline is
// raised once, not once per tick.
type Ticker struct {
	service *Service

	mu     sync.Mutex
	raised map[string]struct{}
}

func NewTicker(service *Service) *Ticker {
	return &Ticker{
		service: service,
		raised:  make(map[string]struct{}),
	}
}

// Sweep examines every active shipment. Per-shipment failures are logged
// and do not stop the sweep; the first store-level failure does.
func (t *Ticker) Sweep(ctx context.Context) error {
	start := time.Now()
	s := t.service

	// One batch, one timestamp: every shipment in this sweep is judged
	// against the same clock reading.
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	active, err := s.shipments.List(ctx, store.Filter{})
	if err != nil {
		return fmt.Errorf("list shipments for sweep: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(tickConcurrency)
	for _, sh := range active {
		if sh.Status.Terminal() {
			continue
		}
		g.Go(func() error {
			if err := t.sweepOne(ctx, sh); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed for shipment",
					"shipment_id", sh.ID, "tracking", sh.TrackingNumber, "error", err)
			}
			return nil
		})
	}
	err = g.Wait()
	if s.metrics != nil {
		s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
	return err
}

func (t *Ticker) sweepOne(ctx context.Context, sh *shipment.Shipment) error {
	s := t.service
	now := requestcontext.Now(ctx)

	for _, alert := range Deadlines(sh, now) {
		if !t.firstSighting(sh.ID, alert) {
			continue
		}
		if s.metrics != nil {
			s.metrics.DeadlineAlerts.WithLabelValues(string(alert.Regime), string(alert.Severity)).Inc()
		}
		if _, err := s.audit.Record(ctx, sh.ID, audit.ActionSystemAlert, alert.String()); err != nil {
			return err
		}
		switch alert.Severity {
		case AlertMissed:
			s.bus.Publish(ctx, events.NewDeadlineMissed(sh.ID, alert.Regime))
		case AlertApproaching:
			s.bus.Publish(ctx, events.NewDeadlineApproaching(sh.ID, alert.Regime, alert.HoursLeft))
		}
	}

	// An arrival verification recorded while a precondition was still open
	// leaves the shipment in transit; pick the move up here.
	if sh.Status == shipment.StatusInTransit && sh.Schedule.ActualArrival != nil {
		if _, err := s.TransitionTo(ctx, sh.ID, shipment.StatusArrivedDestination); err != nil {
			s.logger.DebugContext(ctx, "arrival still blocked", "shipment_id", sh.ID, "error", err)
		}
	}

	if sh.LR.Engaged() {
		if _, err := s.ReconcileWithLR(ctx, sh.ID); err != nil {
			s.logger.WarnContext(ctx, "LR reconciliation failed",
				"shipment_id", sh.ID, "error", err)
		}
	}
	return nil
}

// firstSighting reports whether this alert has not been raised before for
// the shipment.
func (t *Ticker) firstSighting(id domain.ShipmentID, alert DeadlineAlert) bool {
	key := fmt.Sprintf("%s|%s|%s", id, alert.Regime, alert.Severity)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.raised[key]; seen {
		return false
	}
	t.raised[key] = struct{}{}
	return true
}
