package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderdesk/orderdesk/libs/kafkax"
)

// envelope is the wire shape consumers receive. The row payload is embedded
// verbatim so the producer never re-interprets what the domain serialized.
type envelope struct {
	EventID       string          `json:"eventId"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventType     string          `json:"eventType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// KafkaDelivery publishes outbox records to Kafka. Messages are keyed by
// aggregate id, so all events of one aggregate land on the same partition
// and keep their relative order.
type KafkaDelivery struct {
	writer *kafka.Writer
	routes TopicRoutes
	logger *slog.Logger
}

func NewKafkaDelivery(brokers []string, routes TopicRoutes, logger *slog.Logger) *KafkaDelivery {
	return &KafkaDelivery{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Balancer: &kafka.Hash{},
		}),
		routes: routes,
		logger: logger,
	}
}

func (d *KafkaDelivery) Deliver(ctx context.Context, rcd Record) error {
	body, err := json.Marshal(envelope{
		EventID:       strconv.FormatInt(rcd.ID, 10),
		AggregateID:   rcd.AggregateID,
		AggregateType: rcd.AggregateType,
		EventType:     rcd.EventType,
		OccurredAt:    rcd.CreatedAt,
		Payload:       json.RawMessage(rcd.Payload),
	})
	if err != nil {
		return err
	}

	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(strconv.FormatInt(rcd.ID, 10))},
		{Key: "event_type", Value: []byte(rcd.EventType)},
		{Key: "aggregate_type", Value: []byte(rcd.AggregateType)},
	}
	headers = kafkax.InjectTraceHeaders(ctx, headers)

	return d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   d.routes.TopicFor(rcd.EventType),
		Key:     []byte(rcd.AggregateID),
		Value:   body,
		Headers: headers,
	})
}

func (d *KafkaDelivery) Close() error {
	return d.writer.Close()
}

// LogDelivery is the broker-less fallback: it only logs what would have been
// published. Useful for local development without Kafka.
func LogDelivery(logger *slog.Logger) DeliveryFunc {
	return func(_ context.Context, rcd Record) error {
		logger.Info("outbox record delivered (log only)",
			"record_id", rcd.ID,
			"aggregate_id", rcd.AggregateID,
			"aggregate_type", rcd.AggregateType,
			"event_type", rcd.EventType)
		return nil
	}
}
