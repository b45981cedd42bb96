package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives an event synchronously on the publishing goroutine.
// Handlers must not mutate shipments; they observe, they do not command.
type Handler func(ctx context.Context, event Event)

// Bus is the synchronous in-process event boundary. Subscribers register per
// event name or for everything; publication blocks until every handler
// returns, which is what keeps delivery order aligned with the audit log.
type Bus struct {
	mu       sync.RWMutex
	byName   map[string][]Handler
	catchAll []Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		byName: make(map[string][]Handler),
		logger: logger,
	}
}

// Subscribe registers a handler for one event name.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byName[name] = append(b.byName[name], handler)
}

// SubscribeAll registers a handler for every event, used by forwarding sinks.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catchAll = append(b.catchAll, handler)
}

// Publish delivers the event to every matching subscriber in registration
// order. A panicking handler is contained so one bad subscriber cannot cut
// off the rest.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.byName[event.EventName()])+len(b.catchAll))
	handlers = append(handlers, b.byName[event.EventName()]...)
	handlers = append(handlers, b.catchAll...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, event, h)
	}
}

func (b *Bus) deliver(ctx context.Context, event Event, h Handler) {
	defer func() {
		if rec := recover(); rec != nil && b.logger != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				"event", event.EventName(),
				"shipment_id", event.Shipment(),
				"panic", rec,
			)
		}
	}()
	h(ctx, event)
}
