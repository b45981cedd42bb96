package events

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/pkg/domain"
)

func TestBusDeliversByName(t *testing.T) {
	bus := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	id := domain.NewShipmentID()

	var sealed []string
	bus.Subscribe("seal_applied", func(_ context.Context, evt Event) {
		sealed = append(sealed, evt.(SealApplied).SealNumber)
	})
	var created int
	bus.Subscribe("shipment_created", func(context.Context, Event) { created++ })

	bus.Publish(context.Background(), NewSealApplied(id, "SL-7741023"))
	bus.Publish(context.Background(), NewSealApplied(id, "SL-9910457"))

	assert.Equal(t, []string{"SL-7741023", "SL-9910457"}, sealed)
	assert.Zero(t, created, "unrelated subscribers stay quiet")
}

func TestBusCatchAllSeesEverything(t *testing.T) {
	bus := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	id := domain.NewShipmentID()

	var names []string
	bus.SubscribeAll(func(_ context.Context, evt Event) {
		names = append(names, evt.EventName())
		assert.Equal(t, id, evt.Shipment())
	})

	bus.Publish(context.Background(), NewShipmentCreated(id, "SEC-20260302-4F7A21"))
	bus.Publish(context.Background(), NewStateTransition(id, "planning", "risk_assessed"))

	assert.Equal(t, []string{"shipment_created", "state_transition"}, names)
}

func TestBusDeliveryOrder(t *testing.T) {
	bus := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	id := domain.NewShipmentID()

	var order []string
	bus.Subscribe("seal_applied", func(context.Context, Event) { order = append(order, "named-1") })
	bus.Subscribe("seal_applied", func(context.Context, Event) { order = append(order, "named-2") })
	bus.SubscribeAll(func(context.Context, Event) { order = append(order, "catch-all") })

	bus.Publish(context.Background(), NewSealApplied(id, "SL-7741023"))

	// Named subscribers run in registration order, then the catch-alls.
	assert.Equal(t, []string{"named-1", "named-2", "catch-all"}, order)
}

func TestBusContainsPanics(t *testing.T) {
	bus := NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	id := domain.NewShipmentID()

	bus.Subscribe("seal_applied", func(context.Context, Event) { panic("bad subscriber") })
	delivered := false
	bus.Subscribe("seal_applied", func(context.Context, Event) { delivered = true })

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), NewSealApplied(id, "SL-7741023"))
	})
	assert.True(t, delivered, "one bad subscriber cannot cut off the rest")
}
