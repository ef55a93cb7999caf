package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

// Currency is an ISO 4217 code from the supported whitelist.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyMXN Currency = "MXN"
	CurrencyARS Currency = "ARS"
	CurrencyCOP Currency = "COP"
)

var supportedCurrencies = map[Currency]bool{
	CurrencyUSD: true,
	CurrencyEUR: true,
	CurrencyGBP: true,
	CurrencyJPY: true,
	CurrencyMXN: true,
	CurrencyARS: true,
	CurrencyCOP: true,
}

func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !supportedCurrencies[c] {
		return "", apperr.Validationf("unsupported currency %q", code)
	}
	return c, nil
}

// Price is a non-negative monetary value held in integer cents to keep
// arithmetic exact across additions and quantity multiplication.
type Price struct {
	Cents    int64
	Currency Currency
}

func NewPrice(cents int64, currency Currency) (Price, error) {
	if cents < 0 {
		return Price{}, apperr.Validationf("price cannot be negative")
	}
	return Price{Cents: cents, Currency: currency}, nil
}

// PriceFromDecimal converts a decimal amount (at most two fractional digits)
// into a Price.
func PriceFromDecimal(amount float64, currency Currency) (Price, error) {
	cents, err := decimalToCents(amount)
	if err != nil {
		return Price{}, err
	}
	return NewPrice(cents, currency)
}

func (p Price) Add(other Price) (Price, error) {
	if p.Currency != other.Currency {
		return Price{}, apperr.Conflictf("cannot add %s to %s", other.Currency, p.Currency)
	}
	return Price{Cents: p.Cents + other.Cents, Currency: p.Currency}, nil
}

func (p Price) Multiply(qty Quantity) Price {
	return Price{Cents: p.Cents * int64(qty), Currency: p.Currency}
}

// Decimal renders the price as a float amount for JSON payloads.
func (p Price) Decimal() float64 {
	return float64(p.Cents) / 100
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d %s", p.Cents/100, p.Cents%100, p.Currency)
}

func decimalToCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperr.Validationf("amount must be a finite number")
	}
	if amount < 0 {
		return 0, apperr.Validationf("amount cannot be negative")
	}
	scaled := amount * 100
	cents := math.Round(scaled)
	if math.Abs(scaled-cents) > 1e-6 {
		return 0, apperr.Validationf("amount cannot have more than two decimal places")
	}
	return int64(cents), nil
}
