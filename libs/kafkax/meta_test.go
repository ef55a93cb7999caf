package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Topic: "orders.events",
		Key:   []byte("ORD-1"),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("42")},
			{Key: "event_type", Value: []byte("OrderCreated")},
			{Key: "aggregate_type", Value: []byte("Order")},
		},
	}

	meta := ExtractEventMeta(msg)
	if meta.EventID != "42" || meta.EventType != "OrderCreated" || meta.AggregateType != "Order" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestExtractEventMetaFallbacks(t *testing.T) {
	msg := kafka.Message{Topic: "orders.events", Key: []byte("ORD-1")}

	meta := ExtractEventMeta(msg)
	if meta.EventID != "ORD-1" {
		t.Fatalf("expected key fallback, got %q", meta.EventID)
	}
	if meta.EventType != "orders.events" {
		t.Fatalf("expected topic fallback, got %q", meta.EventType)
	}
}

func TestSplitBrokers(t *testing.T) {
	brokers := SplitBrokers(" kafka-1:9092, kafka-2:9092 ,,")
	if len(brokers) != 2 || brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", brokers)
	}
}

func TestInjectTraceHeadersAddsAndOverwrites(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	headers := InjectTraceHeaders(context.Background(), []kafka.Header{
		{Key: "event_id", Value: []byte("42")},
	})
	if HeaderValue(headers, "event_id") != "42" {
		t.Fatal("existing headers must survive injection")
	}

	// A context without a recording span injects nothing; the round trip
	// through the carrier must still be lossless.
	ctx := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	if ctx == nil {
		t.Fatal("expected a context")
	}
}
