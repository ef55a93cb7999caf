package domain

import (
	"strings"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

const maxSKULength = 50

// SKU is a normalized (upper-cased, trimmed) stock keeping unit.
type SKU string

func ParseSKU(value string) (SKU, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return "", apperr.Validationf("sku cannot be empty")
	}
	if len(v) > maxSKULength {
		return "", apperr.Validationf("sku cannot exceed %d characters", maxSKULength)
	}
	return SKU(v), nil
}

// Quantity is a strictly positive item count.
type Quantity int

func ParseQuantity(value int) (Quantity, error) {
	if value <= 0 {
		return 0, apperr.Validationf("quantity must be greater than 0")
	}
	return Quantity(value), nil
}

// PaymentType is the settlement method for a payment.
type PaymentType string

const (
	PaymentCard     PaymentType = "CARD"
	PaymentTransfer PaymentType = "TRANSFER"
	PaymentCash     PaymentType = "CASH"
)

var paymentTypeAliases = map[string]PaymentType{
	"CARD":     PaymentCard,
	"TRANSFER": PaymentTransfer,
	"WIRE":     PaymentTransfer,
	"CASH":     PaymentCash,
}

func ParsePaymentType(value string) (PaymentType, error) {
	t, ok := paymentTypeAliases[strings.ToUpper(strings.TrimSpace(value))]
	if !ok {
		return "", apperr.Validationf("payment type must be card, transfer or cash")
	}
	return t, nil
}

// LineItem is an immutable (sku, quantity, unit price) triple.
type LineItem struct {
	SKU       SKU
	Quantity  Quantity
	UnitPrice Price
}

func (li LineItem) Total() Price {
	return li.UnitPrice.Multiply(li.Quantity)
}
