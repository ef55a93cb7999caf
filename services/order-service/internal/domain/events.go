package domain

import "time"

// Event is a domain event staged for the transactional outbox.
//
// The event name doubles as the outbox event_type and, by naming convention,
// determines the aggregate type: names prefixed with "Payment" belong to the
// Payment aggregate, every other name to Order. New events must keep to that
// scheme.
type Event interface {
	Name() string
	AggregateID() string
	OccurredAt() time.Time
	// Payload returns the serializable event body. Timestamps inside the
	// payload are the event's own, not insertion time.
	Payload() map[string]any
}

type OrderCreated struct {
	OrderID string
	At      time.Time
}

func (e OrderCreated) Name() string          { return "OrderCreated" }
func (e OrderCreated) AggregateID() string   { return e.OrderID }
func (e OrderCreated) OccurredAt() time.Time { return e.At }

func (e OrderCreated) Payload() map[string]any {
	return map[string]any{
		"orderId":    e.OrderID,
		"occurredAt": e.At,
	}
}

type ItemAddedToOrder struct {
	OrderID string
	Item    LineItem
	At      time.Time
}

func (e ItemAddedToOrder) Name() string          { return "ItemAddedToOrder" }
func (e ItemAddedToOrder) AggregateID() string   { return e.OrderID }
func (e ItemAddedToOrder) OccurredAt() time.Time { return e.At }

func (e ItemAddedToOrder) Payload() map[string]any {
	return map[string]any{
		"orderId":    e.OrderID,
		"sku":        string(e.Item.SKU),
		"quantity":   int(e.Item.Quantity),
		"unitPrice":  e.Item.UnitPrice.Decimal(),
		"currency":   string(e.Item.UnitPrice.Currency),
		"lineTotal":  e.Item.Total().Decimal(),
		"occurredAt": e.At,
	}
}

type PaymentCreated struct {
	PaymentID string
	Amount    Price
	At        time.Time
}

func (e PaymentCreated) Name() string          { return "PaymentCreated" }
func (e PaymentCreated) AggregateID() string   { return e.PaymentID }
func (e PaymentCreated) OccurredAt() time.Time { return e.At }

func (e PaymentCreated) Payload() map[string]any {
	return map[string]any{
		"paymentId":  e.PaymentID,
		"amount":     e.Amount.Decimal(),
		"currency":   string(e.Amount.Currency),
		"occurredAt": e.At,
	}
}
