package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

type PaymentID string

func ParsePaymentID(value string) (PaymentID, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperr.Validationf("payment id cannot be empty")
	}
	return PaymentID(v), nil
}

func GeneratePaymentID() PaymentID {
	return PaymentID("PAY-" + uuid.NewString())
}

// Payment is immutable once constructed. Construction checks that the amount
// settles the order total exactly, currency included.
type Payment struct {
	id     PaymentID
	amount Price
	method PaymentType
	events []Event
}

func NewPayment(id PaymentID, amount Price, method PaymentType, orderTotal Price) (*Payment, error) {
	if amount.Currency != orderTotal.Currency {
		return nil, apperr.Conflictf("payment currency %s does not match order currency %s",
			amount.Currency, orderTotal.Currency)
	}
	if amount.Cents != orderTotal.Cents {
		return nil, apperr.Conflictf("payment amount %s does not equal order total %s",
			amount, orderTotal)
	}

	p := &Payment{id: id, amount: amount, method: method}
	p.events = append(p.events, PaymentCreated{
		PaymentID: string(id),
		Amount:    amount,
		At:        time.Now().UTC(),
	})
	return p, nil
}

// RehydratePayment rebuilds a payment from a persisted row, skipping the
// order-total check and emitting no events.
func RehydratePayment(id PaymentID, amount Price, method PaymentType) *Payment {
	return &Payment{id: id, amount: amount, method: method}
}

func (p *Payment) ID() PaymentID     { return p.id }
func (p *Payment) Amount() Price     { return p.amount }
func (p *Payment) Type() PaymentType { return p.method }

func (p *Payment) Events() []Event {
	events := make([]Event, len(p.events))
	copy(events, p.events)
	return events
}

func (p *Payment) ClearEvents() { p.events = nil }
