package domain

import (
	"testing"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

func TestNewPaymentMatchesOrderTotal(t *testing.T) {
	total := mustPrice(t, 10997, CurrencyUSD)

	payment, err := NewPayment("PAY-1", total, PaymentCard, total)
	if err != nil {
		t.Fatalf("NewPayment failed: %v", err)
	}

	events := payment.Events()
	if len(events) != 1 || events[0].Name() != "PaymentCreated" {
		t.Fatalf("expected single PaymentCreated event, got %v", events)
	}
	if events[0].AggregateID() != "PAY-1" {
		t.Fatalf("expected aggregate id PAY-1, got %s", events[0].AggregateID())
	}
}

func TestNewPaymentRejectsAmountMismatch(t *testing.T) {
	total := mustPrice(t, 10997, CurrencyUSD)
	amount := mustPrice(t, 9997, CurrencyUSD)

	_, err := NewPayment("PAY-1", amount, PaymentCard, total)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestNewPaymentRejectsCurrencyMismatch(t *testing.T) {
	total := mustPrice(t, 10997, CurrencyUSD)
	amount := mustPrice(t, 10997, CurrencyEUR)

	_, err := NewPayment("PAY-1", amount, PaymentTransfer, total)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRehydratePaymentSkipsChecksAndEvents(t *testing.T) {
	payment := RehydratePayment("PAY-1", mustPrice(t, 500, CurrencyGBP), PaymentCash)
	if len(payment.Events()) != 0 {
		t.Fatal("expected no events from rehydrate")
	}
	if payment.Amount().Cents != 500 {
		t.Fatalf("expected amount 500, got %d", payment.Amount().Cents)
	}
}

func TestParsePaymentTypeAliases(t *testing.T) {
	cases := map[string]PaymentType{
		"card":     PaymentCard,
		"CARD":     PaymentCard,
		" wire ":   PaymentTransfer,
		"transfer": PaymentTransfer,
		"cash":     PaymentCash,
	}
	for input, want := range cases {
		got, err := ParsePaymentType(input)
		if err != nil {
			t.Fatalf("ParsePaymentType(%q) failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParsePaymentType(%q): expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParsePaymentType("check"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPriceFromDecimal(t *testing.T) {
	p, err := PriceFromDecimal(29.99, CurrencyUSD)
	if err != nil {
		t.Fatalf("PriceFromDecimal failed: %v", err)
	}
	if p.Cents != 2999 {
		t.Fatalf("expected 2999 cents, got %d", p.Cents)
	}

	if _, err := PriceFromDecimal(29.999, CurrencyUSD); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected validation error for three decimals, got %v", err)
	}
	if _, err := PriceFromDecimal(-1, CurrencyUSD); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
}
