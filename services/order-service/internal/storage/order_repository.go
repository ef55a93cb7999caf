package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
)

// OrderRepository persists orders with a replace-on-write strategy: the
// header row is upserted and the line items are deleted and reinserted in
// full on every save. The in-memory item list is the authoritative state
// after domain-level merging, so there is nothing to diff, and the write is
// idempotent under retry.
//
// Bound to a pgx.Tx it participates in that transaction; bound to the pool
// each statement auto-commits.
type OrderRepository struct {
	q db.Querier
}

func NewOrderRepository(q db.Querier) *OrderRepository {
	return &OrderRepository{q: q}
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	id := string(order.ID())

	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, status)
		VALUES ($1, 'pending')
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    updated_at = now()
	`, id)
	if err != nil {
		return apperr.Infraf(err, "saving order %s", id)
	}

	_, err = r.q.Exec(ctx, `DELETE FROM orders_items WHERE order_id = $1`, id)
	if err != nil {
		return apperr.Infraf(err, "saving order %s", id)
	}

	items := order.LineItems()
	if len(items) == 0 {
		return nil
	}

	var (
		values []string
		args   []any
	)
	for i, item := range items {
		base := i * 6
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args,
			id,
			string(item.SKU),
			int(item.Quantity),
			item.UnitPrice.Cents,
			item.Total().Cents,
			string(item.UnitPrice.Currency),
		)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO orders_items (order_id, sku, quantity, unit_price_cents, total_cents, currency)
		VALUES `+strings.Join(values, ", "), args...)
	if err != nil {
		return apperr.Infraf(err, "saving order %s", id)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var headerID string
	err := r.q.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1`, string(id)).Scan(&headerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("order", string(id))
	}
	if err != nil {
		return nil, apperr.Infraf(err, "loading order %s", id)
	}

	rows, err := r.q.Query(ctx, `
		SELECT sku, quantity, unit_price_cents, currency
		FROM orders_items
		WHERE order_id = $1
		ORDER BY id
	`, string(id))
	if err != nil {
		return nil, apperr.Infraf(err, "loading order %s", id)
	}
	defer rows.Close()

	items, err := scanLineItems(rows)
	if err != nil {
		return nil, apperr.Infraf(err, "loading order %s", id)
	}
	return domain.RehydrateOrder(id, items)
}

// GetAll returns every order with its line items, in creation order.
func (r *OrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.q.Query(ctx, `
		SELECT o.id, oi.sku, oi.quantity, oi.unit_price_cents, oi.currency
		FROM orders o
		LEFT JOIN orders_items oi ON oi.order_id = o.id
		ORDER BY o.created_at, oi.id
	`)
	if err != nil {
		return nil, apperr.Infraf(err, "listing orders")
	}
	defer rows.Close()

	var (
		orderIDs []string
		itemsFor = map[string][]domain.LineItem{}
	)
	for rows.Next() {
		var (
			orderID  string
			sku      *string
			quantity *int
			cents    *int64
			currency *string
		)
		if err := rows.Scan(&orderID, &sku, &quantity, &cents, &currency); err != nil {
			return nil, apperr.Infraf(err, "listing orders")
		}
		if _, seen := itemsFor[orderID]; !seen {
			orderIDs = append(orderIDs, orderID)
			itemsFor[orderID] = nil
		}
		// LEFT JOIN emits a null item row for orders with no items.
		if sku == nil || quantity == nil || cents == nil || currency == nil {
			continue
		}
		item, err := lineItem(*sku, *quantity, *cents, *currency)
		if err != nil {
			return nil, err
		}
		itemsFor[orderID] = append(itemsFor[orderID], item)
	}
	if rows.Err() != nil {
		return nil, apperr.Infraf(rows.Err(), "listing orders")
	}

	orders := make([]*domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		order, err := domain.RehydrateOrder(domain.OrderID(id), itemsFor[id])
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func scanLineItems(rows pgx.Rows) ([]domain.LineItem, error) {
	var items []domain.LineItem
	for rows.Next() {
		var (
			sku      string
			quantity int
			cents    int64
			currency string
		)
		if err := rows.Scan(&sku, &quantity, &cents, &currency); err != nil {
			return nil, err
		}
		item, err := lineItem(sku, quantity, cents, currency)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func lineItem(sku string, quantity int, cents int64, currency string) (domain.LineItem, error) {
	parsedSKU, err := domain.ParseSKU(sku)
	if err != nil {
		return domain.LineItem{}, err
	}
	parsedQty, err := domain.ParseQuantity(quantity)
	if err != nil {
		return domain.LineItem{}, err
	}
	cur, err := domain.ParseCurrency(currency)
	if err != nil {
		return domain.LineItem{}, err
	}
	price, err := domain.NewPrice(cents, cur)
	if err != nil {
		return domain.LineItem{}, err
	}
	return domain.LineItem{SKU: parsedSKU, Quantity: parsedQty, UnitPrice: price}, nil
}
