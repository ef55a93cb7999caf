package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
)

type PaymentRepository struct {
	q db.Querier
}

func NewPaymentRepository(q db.Querier) *PaymentRepository {
	return &PaymentRepository{q: q}
}

func (r *PaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (id, amount_cents, currency, payment_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET amount_cents = EXCLUDED.amount_cents,
		    currency = EXCLUDED.currency,
		    payment_type = EXCLUDED.payment_type
	`, string(payment.ID()), payment.Amount().Cents, string(payment.Amount().Currency), string(payment.Type()))
	if err != nil {
		return apperr.Infraf(err, "saving payment %s", payment.ID())
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id domain.PaymentID) (*domain.Payment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, amount_cents, currency, payment_type
		FROM payments
		WHERE id = $1
	`, string(id))

	payment, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("payment", string(id))
	}
	if err != nil {
		return nil, apperr.Infraf(err, "loading payment %s", id)
	}
	return payment, nil
}

func (r *PaymentRepository) GetAll(ctx context.Context) ([]*domain.Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, amount_cents, currency, payment_type
		FROM payments
		ORDER BY id
	`)
	if err != nil {
		return nil, apperr.Infraf(err, "listing payments")
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, apperr.Infraf(err, "listing payments")
		}
		payments = append(payments, payment)
	}
	if rows.Err() != nil {
		return nil, apperr.Infraf(rows.Err(), "listing payments")
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		id       string
		cents    int64
		currency string
		method   string
	)
	if err := row.Scan(&id, &cents, &currency, &method); err != nil {
		return nil, err
	}

	cur, err := domain.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	amount, err := domain.NewPrice(cents, cur)
	if err != nil {
		return nil, err
	}
	paymentType, err := domain.ParsePaymentType(method)
	if err != nil {
		return nil, err
	}
	return domain.RehydratePayment(domain.PaymentID(id), amount, paymentType), nil
}
