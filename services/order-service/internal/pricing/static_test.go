package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
)

func TestPriceForKnownSKU(t *testing.T) {
	catalog := NewCatalog()

	price, err := catalog.PriceFor("WIDGET-001", domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, int64(2999), price.Cents)
	assert.Equal(t, domain.CurrencyUSD, price.Currency)
}

func TestPriceForUnknownSKUIsInfra(t *testing.T) {
	catalog := NewCatalog()

	_, err := catalog.PriceFor("NOPE-999", domain.CurrencyUSD)
	require.Error(t, err)
	assert.Equal(t, apperr.Infra, apperr.KindOf(err))
}

func TestPriceForMissingCurrencyIsInfra(t *testing.T) {
	catalog := NewCatalog()

	_, err := catalog.PriceFor("WIDGET-001", domain.CurrencyJPY)
	require.Error(t, err)
	assert.Equal(t, apperr.Infra, apperr.KindOf(err))
}

func TestSetPriceOverrides(t *testing.T) {
	catalog := NewCatalog()
	override, err := domain.NewPrice(1234, domain.CurrencyJPY)
	require.NoError(t, err)

	catalog.SetPrice("WIDGET-001", override)

	price, err := catalog.PriceFor("WIDGET-001", domain.CurrencyJPY)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), price.Cents)
}
