package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

// DeliveryFunc hands one claimed record to the external transport. Delivery
// is at-least-once: the same record may be handed over again after a crash
// between delivery and marking, so consumers must de-duplicate by record id
// or tolerate duplicates.
type DeliveryFunc func(ctx context.Context, rcd Record) error

// Summary is the observable outcome of one dispatch cycle.
type Summary struct {
	Selected  int
	Published int
	Failed    int
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type recordStore interface {
	FetchUnpublished(ctx context.Context, q db.Querier, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, q db.Querier, ids []int64) error
}

type DispatcherConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Backoff      time.Duration
}

// Dispatcher drains the outbox independently of the writers. Any number of
// instances may poll the same table; the skip-locked claim keeps their
// batches disjoint within a cycle.
type Dispatcher struct {
	db      txBeginner
	store   recordStore
	deliver DeliveryFunc
	logger  *slog.Logger
	clock   clockwork.Clock
	cfg     DispatcherConfig
}

type DispatcherOption func(*Dispatcher)

// WithClock replaces the wall clock, letting tests drive the poll loop with
// a fake clock.
func WithClock(clock clockwork.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func NewDispatcher(database txBeginner, store recordStore, deliver DeliveryFunc, logger *slog.Logger, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = cfg.PollInterval
	}
	d := &Dispatcher{
		db:      database,
		store:   store,
		deliver: deliver,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunOnce processes at most one batch: claim pending rows, deliver them in
// order, mark the delivered ones, commit. A delivery failure is isolated to
// its row; that row stays unmarked for the next cycle while the rest of the
// batch proceeds. A claim failure rolls the cycle back and propagates.
func (d *Dispatcher) RunOnce(ctx context.Context) (Summary, error) {
	ctx, span := otel.Tracer("outbox").Start(ctx, "outbox.dispatch")
	defer span.End()

	var summary Summary

	tx, err := d.db.Begin(ctx)
	if err != nil {
		return summary, apperr.Infraf(err, "beginning dispatch transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	records, err := d.store.FetchUnpublished(ctx, tx, d.cfg.BatchSize)
	if err != nil {
		return summary, apperr.Infraf(err, "claiming outbox batch")
	}
	summary.Selected = len(records)

	if len(records) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return summary, apperr.Infraf(err, "committing dispatch transaction")
		}
		committed = true
		return summary, nil
	}

	var delivered []int64
	for _, rcd := range records {
		if err := d.deliver(ctx, rcd); err != nil {
			summary.Failed++
			d.logger.Error("outbox delivery failed",
				"record_id", rcd.ID,
				"event_type", rcd.EventType,
				"err", err)
			continue
		}
		delivered = append(delivered, rcd.ID)
	}

	if err := d.store.MarkPublished(ctx, tx, delivered); err != nil {
		return summary, apperr.Infraf(err, "marking %d outbox record(s) published", len(delivered))
	}
	if err := tx.Commit(ctx); err != nil {
		return summary, apperr.Infraf(err, "committing dispatch transaction")
	}
	committed = true
	summary.Published = len(delivered)

	span.SetAttributes(
		attribute.Int("outbox.selected", summary.Selected),
		attribute.Int("outbox.published", summary.Published),
		attribute.Int("outbox.failed", summary.Failed),
	)
	d.logger.Info("outbox batch processed",
		"selected", summary.Selected,
		"published", summary.Published,
		"failed", summary.Failed)
	return summary, nil
}

// Run polls on a fixed interval until ctx is cancelled. The in-flight cycle
// always finishes; cancellation only stops the loop between cycles. A failed
// cycle sleeps the configured backoff before polling resumes.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("outbox dispatcher started",
		"poll_interval", d.cfg.PollInterval,
		"batch_size", d.cfg.BatchSize)

	// Drain whatever accumulated before the first tick.
	d.cycle(ctx)

	ticker := d.clock.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.Chan():
			d.cycle(ctx)
		}
	}
}

func (d *Dispatcher) cycle(ctx context.Context) {
	// The stop signal only gates the loop. A cycle that has started must
	// finish marking and committing, or delivered rows would stay unmarked
	// and be redelivered after restart. WithoutCancel keeps trace values.
	if _, err := d.RunOnce(context.WithoutCancel(ctx)); err != nil {
		d.logger.Error("outbox dispatch cycle failed", "err", err)
		select {
		case <-ctx.Done():
		case <-d.clock.After(d.cfg.Backoff):
		}
	}
}
