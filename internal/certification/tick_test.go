package certification_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/internal/audit"
	"seacert/internal/certification"
	"seacert/internal/events"
	"seacert/internal/lloyds"
	"seacert/internal/shipment"
	"seacert/internal/shipment/store"
	"seacert/pkg/domain"
	"seacert/pkg/testutil"
)

// tickNow sits well in the past so a sweep that read the wall clock instead
// of the context clock would mark every obligation missed.
var tickNow = time.Date(2020, time.March, 2, 8, 0, 0, 0, time.UTC)

// sweepCapture collects bus events behind a mutex; the sweep publishes from
// its worker goroutines.
type sweepCapture struct {
	mu   sync.Mutex
	evts []events.Event
}

func (c *sweepCapture) add(_ context.Context, evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evts = append(c.evts, evt)
}

func (c *sweepCapture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evts = nil
}

func (c *sweepCapture) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.evts))
	for _, evt := range c.evts {
		names = append(names, evt.EventName())
	}
	return names
}

func newSweepHarness(t *testing.T) (*certification.Service, *certification.Ticker, *sweepCapture, *audit.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	shipments := store.NewMemoryStore()
	auditLog := audit.NewInMemoryStore()
	bus := events.NewBus(logger)
	capture := &sweepCapture{}
	bus.SubscribeAll(capture.add)
	svc := certification.New(
		shipments,
		audit.NewRecorder(auditLog, logger),
		bus,
		&lloyds.MockClient{},
		certification.WithLogger(logger),
	)
	return svc, certification.NewTicker(svc), capture, auditLog
}

func sweepShipmentUSBound(t *testing.T, ctx context.Context, svc *certification.Service, departure time.Time) *shipment.Shipment {
	t.Helper()
	arrival := departure.Add(12 * 24 * time.Hour)
	sh, err := svc.RegisterShipment(ctx, certification.NewShipmentInput{
		Deal: shipment.DealView{
			DealID:        domain.NewDealID(),
			DeclaredValue: 31000,
			Currency:      "USD",
		},
		Route: shipment.Route{
			OriginPort:         "CAMTR",
			DestinationPort:    "USNYC",
			DestinationCountry: "US",
		},
		Schedule: shipment.Schedule{
			EstimatedDeparture: &departure,
			EstimatedArrival:   &arrival,
		},
	})
	require.NoError(t, err)
	return sh
}

func TestSweepJudgesDeadlinesOnTheContextClock(t *testing.T) {
	svc, ticker, capture, _ := newSweepHarness(t)
	ctx := testutil.Context(tickNow)

	// VGM and AMS fall due 52 hours after the pinned now.
	sweepShipmentUSBound(t, ctx, svc, tickNow.Add(76*time.Hour))
	capture.reset()

	require.NoError(t, ticker.Sweep(ctx))
	assert.Empty(t, capture.names())
}

func TestSweepDeadlineAlerts(t *testing.T) {
	t.Run("raises approaching alerts with audit entries", func(t *testing.T) {
		svc, ticker, capture, auditLog := newSweepHarness(t)
		ctx := testutil.Context(tickNow)
		sh := sweepShipmentUSBound(t, ctx, svc, tickNow.Add(26*time.Hour))
		capture.reset()

		require.NoError(t, ticker.Sweep(ctx))
		assert.ElementsMatch(t,
			[]string{"deadline_approaching", "deadline_approaching"},
			capture.names())

		entries, err := auditLog.List(ctx, audit.Filter{ShipmentID: sh.ID})
		require.NoError(t, err)
		alerts := 0
		for _, entry := range entries {
			if entry.Action == audit.ActionSystemAlert && strings.Contains(entry.Description, "filing due in") {
				alerts++
			}
		}
		assert.Equal(t, 2, alerts)
	})

	t.Run("each alert is raised once, not once per tick", func(t *testing.T) {
		svc, ticker, capture, _ := newSweepHarness(t)
		ctx := testutil.Context(tickNow)
		sweepShipmentUSBound(t, ctx, svc, tickNow.Add(26*time.Hour))
		capture.reset()

		require.NoError(t, ticker.Sweep(ctx))
		require.Len(t, capture.names(), 2)
		require.NoError(t, ticker.Sweep(ctx))
		assert.Len(t, capture.names(), 2)
	})

	t.Run("a blown deadline publishes deadline_missed", func(t *testing.T) {
		svc, ticker, capture, _ := newSweepHarness(t)
		ctx := testutil.Context(tickNow)
		sweepShipmentUSBound(t, ctx, svc, tickNow.Add(12*time.Hour))
		capture.reset()

		require.NoError(t, ticker.Sweep(ctx))
		assert.ElementsMatch(t,
			[]string{"deadline_missed", "deadline_missed"},
			capture.names())
	})

	t.Run("cancelled shipments are skipped", func(t *testing.T) {
		svc, ticker, capture, _ := newSweepHarness(t)
		ctx := testutil.Context(tickNow)
		sh := sweepShipmentUSBound(t, ctx, svc, tickNow.Add(12*time.Hour))
		_, err := svc.Cancel(ctx, sh.ID, "buyer withdrew")
		require.NoError(t, err)
		capture.reset()

		require.NoError(t, ticker.Sweep(ctx))
		assert.Empty(t, capture.names())
	})
}
