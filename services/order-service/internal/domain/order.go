package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

type OrderID string

func ParseOrderID(value string) (OrderID, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperr.Validationf("order id cannot be empty")
	}
	return OrderID(v), nil
}

func GenerateOrderID() OrderID {
	return OrderID("ORD-" + uuid.NewString())
}

// Order is an aggregate of line items sharing a single currency.
// Mutations record domain events; persisting the order and its events is the
// caller's job (see the unit of work).
type Order struct {
	id       OrderID
	items    []LineItem
	currency Currency
	events   []Event
}

// NewOrder records an OrderCreated event. Use RehydrateOrder when loading
// persisted state.
func NewOrder(id OrderID) *Order {
	o := &Order{id: id}
	o.events = append(o.events, OrderCreated{OrderID: string(id), At: time.Now().UTC()})
	return o
}

// RehydrateOrder rebuilds an order from persisted line items without
// re-emitting creation events.
func RehydrateOrder(id OrderID, items []LineItem) (*Order, error) {
	o := &Order{id: id}
	for _, item := range items {
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}
	o.ClearEvents()
	return o, nil
}

func (o *Order) ID() OrderID { return o.id }

// AddItem enforces the single-currency invariant and merges quantities when
// the SKU is already present, keeping the first unit price.
func (o *Order) AddItem(item LineItem) error {
	if o.currency == "" {
		o.currency = item.UnitPrice.Currency
	} else if o.currency != item.UnitPrice.Currency {
		return apperr.Conflictf("cannot add %s item to %s order",
			item.UnitPrice.Currency, o.currency)
	}

	merged := false
	for i, existing := range o.items {
		if existing.SKU == item.SKU {
			o.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		o.items = append(o.items, item)
	}

	o.events = append(o.events, ItemAddedToOrder{
		OrderID: string(o.id),
		Item:    item,
		At:      time.Now().UTC(),
	})
	return nil
}

func (o *Order) LineItems() []LineItem {
	items := make([]LineItem, len(o.items))
	copy(items, o.items)
	return items
}

func (o *Order) Currency() Currency { return o.currency }

func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.items {
		count += int(item.Quantity)
	}
	return count
}

// Total sums the line totals. An order with no items has no currency yet,
// which is a conflict for callers that need an amount (e.g. payments).
func (o *Order) Total() (Price, error) {
	if len(o.items) == 0 {
		if o.currency == "" {
			return Price{}, apperr.Conflictf("order %s has no items", o.id)
		}
		return Price{Cents: 0, Currency: o.currency}, nil
	}

	total := o.items[0].Total()
	for _, item := range o.items[1:] {
		sum, err := total.Add(item.Total())
		if err != nil {
			return Price{}, err
		}
		total = sum
	}
	return total, nil
}

func (o *Order) Events() []Event {
	events := make([]Event, len(o.events))
	copy(events, o.events)
	return events
}

func (o *Order) ClearEvents() { o.events = nil }
