package pricing

import (
	"fmt"
	"sync"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
)

// Catalog resolves unit prices per SKU and currency from an in-memory table.
// The table stands in for an external pricing service; the lookup failing is
// therefore an infrastructure problem from the caller's point of view, not a
// validation one.
type Catalog struct {
	mu     sync.RWMutex
	prices map[string]map[domain.Currency]int64
}

func NewCatalog() *Catalog {
	return &Catalog{
		prices: map[string]map[domain.Currency]int64{
			"WIDGET-001": {
				domain.CurrencyUSD: 2999,
				domain.CurrencyEUR: 2799,
				domain.CurrencyGBP: 2399,
				domain.CurrencyMXN: 50983,
			},
			"GADGET-002": {
				domain.CurrencyUSD: 4999,
				domain.CurrencyEUR: 4599,
				domain.CurrencyGBP: 3999,
				domain.CurrencyMXN: 84983,
			},
			"DEVICE-003": {
				domain.CurrencyUSD: 9999,
				domain.CurrencyEUR: 9199,
				domain.CurrencyGBP: 7999,
				domain.CurrencyMXN: 169983,
			},
			"COMPONENT-04": {
				domain.CurrencyUSD: 1499,
				domain.CurrencyEUR: 1399,
				domain.CurrencyGBP: 1199,
				domain.CurrencyMXN: 25483,
			},
			"ACCESSORY-05": {
				domain.CurrencyUSD: 799,
				domain.CurrencyEUR: 749,
				domain.CurrencyGBP: 649,
				domain.CurrencyMXN: 13583,
			},
		},
	}
}

func (c *Catalog) PriceFor(sku domain.SKU, currency domain.Currency) (domain.Price, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byCurrency, ok := c.prices[string(sku)]
	if !ok {
		return domain.Price{}, apperr.Infraf(
			fmt.Errorf("sku %s not in catalog", sku),
			"resolving price for %s", sku)
	}
	cents, ok := byCurrency[currency]
	if !ok {
		return domain.Price{}, apperr.Infraf(
			fmt.Errorf("sku %s has no %s price", sku, currency),
			"resolving price for %s", sku)
	}
	return domain.NewPrice(cents, currency)
}

// SetPrice overrides or adds one catalog entry.
func (c *Catalog) SetPrice(sku domain.SKU, price domain.Price) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byCurrency, ok := c.prices[string(sku)]
	if !ok {
		byCurrency = make(map[domain.Currency]int64)
		c.prices[string(sku)] = byCurrency
	}
	byCurrency[price.Currency] = price.Cents
}
