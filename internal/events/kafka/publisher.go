// Package kafka forwards engine events to downstream notifiers over Kafka.
// Forwarding is best-effort: a broker outage never fails the mutation that
// produced the event; the audit log remains the durable record.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"seacert/internal/events"
)

// Publisher serializes events to JSON and produces them keyed by shipment ID,
// so one shipment's events stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type envelope struct {
	Event      string `json:"event"`
	ShipmentID string `json:"shipment_id"`
	Payload    any    `json:"payload"`
}

// New connects a producer to the given brokers.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Attach subscribes the publisher to every event on the bus.
func (p *Publisher) Attach(bus *events.Bus) {
	bus.SubscribeAll(p.forward)
}

func (p *Publisher) forward(ctx context.Context, event events.Event) {
	payload, err := json.Marshal(envelope{
		Event:      event.EventName(),
		ShipmentID: event.Shipment().String(),
		Payload:    event,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event for kafka", "event", event.EventName(), "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Shipment().String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka produce failed",
				"event", event.EventName(),
				"shipment_id", event.Shipment(),
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return err
	}
	p.client.Close()
	return nil
}
