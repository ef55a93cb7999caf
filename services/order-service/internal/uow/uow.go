package uow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
	"github.com/orderdesk/orderdesk/services/order-service/internal/outbox"
	"github.com/orderdesk/orderdesk/services/order-service/internal/storage"
)

// Scope bundles the repositories bound to one transaction. Everything done
// through a Scope commits or rolls back atomically, which is what makes
// writing an aggregate and its outbox events a single unit.
type Scope struct {
	Orders   *storage.OrderRepository
	Payments *storage.PaymentRepository
	Events   *outbox.Writer
}

type UnitOfWork struct {
	pool   *db.Pool
	logger *slog.Logger
}

func New(pool *db.Pool, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{pool: pool, logger: logger}
}

// Run executes fn inside one transaction on one pooled connection. If fn
// returns an error the transaction rolls back and the error is surfaced
// wrapped; otherwise the transaction commits. Rollback errors are logged and
// swallowed since the original failure is the one the caller cares about.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, s Scope) error) error {
	conn, err := u.pool.Acquire(ctx)
	if err != nil {
		return u.fail(err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return u.fail(err)
	}

	scope := Scope{
		Orders:   storage.NewOrderRepository(tx),
		Payments: storage.NewPaymentRepository(tx),
		Events:   outbox.NewWriter(tx),
	}

	if err := fn(ctx, scope); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			u.logger.Error("transaction rollback failed", "err", rbErr)
		}
		return u.fail(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return u.fail(err)
	}
	return nil
}

// fail wraps any unit-of-work failure uniformly. Errors that already carry an
// application kind keep it through the wrap; raw driver errors become Infra.
func (u *UnitOfWork) fail(err error) error {
	if apperr.KindOf(err) != apperr.Unknown {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return apperr.Infraf(err, "transaction failed")
}
