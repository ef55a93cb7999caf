package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
)

// Writer appends domain events to the outbox table on whatever Querier it is
// bound to. Inside a unit of work that Querier is the enclosing transaction,
// so the rows commit or roll back together with the aggregate mutation that
// produced them. The Writer never delivers anything; delivery belongs to the
// Dispatcher.
type Writer struct {
	q db.Querier
}

func NewWriter(q db.Querier) *Writer {
	return &Writer{q: q}
}

func (w *Writer) Publish(ctx context.Context, event domain.Event) error {
	return w.PublishBatch(ctx, []domain.Event{event})
}

// PublishBatch inserts all events in one statement, preserving input order so
// that id/created_at ordering matches event causality. An empty batch issues
// no write at all.
func (w *Writer) PublishBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	var (
		values []string
		args   []any
	)
	for i, event := range events {
		payload, err := json.Marshal(event.Payload())
		if err != nil {
			return writeError(len(events), err)
		}
		base := i * 5
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d::jsonb, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args,
			event.AggregateID(),
			aggregateTypeFor(event.Name()),
			event.Name(),
			payload,
			event.OccurredAt(),
		)
	}

	_, err := w.q.Exec(ctx, `
		INSERT INTO outbox (aggregate_id, aggregate_type, event_type, event_data, created_at)
		VALUES `+strings.Join(values, ", "), args...)
	if err != nil {
		return writeError(len(events), err)
	}
	return nil
}

// aggregateTypeFor resolves the owning aggregate from the event name prefix.
// This is a contract of the event-naming scheme, not a lookup: "Payment*"
// events belong to Payment, everything else to Order.
func aggregateTypeFor(eventName string) string {
	if strings.HasPrefix(eventName, "Payment") {
		return "Payment"
	}
	return "Order"
}

func writeError(count int, cause error) error {
	return apperr.Infraf(cause, "persisting %d outbox event(s)", count)
}
