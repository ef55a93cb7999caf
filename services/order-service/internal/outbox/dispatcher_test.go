package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/apperr"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx *fakeTx
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	return f.tx, nil
}

type fakeStore struct {
	records  []Record
	fetchErr error
	marked   []int64
	markErr  error
}

func (f *fakeStore) FetchUnpublished(_ context.Context, _ db.Querier, limit int) ([]Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, _ db.Querier, ids []int64) error {
	f.marked = append(f.marked, ids...)
	return f.markErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecords() []Record {
	now := time.Now()
	return []Record{
		{ID: 1, AggregateID: "ORD-1", AggregateType: "Order", EventType: "OrderCreated", CreatedAt: now},
		{ID: 2, AggregateID: "ORD-1", AggregateType: "Order", EventType: "ItemAddedToOrder", CreatedAt: now},
		{ID: 3, AggregateID: "PAY-1", AggregateType: "Payment", EventType: "PaymentCreated", CreatedAt: now},
	}
}

func TestRunOnceEmptyBacklog(t *testing.T) {
	tx := &fakeTx{}
	store := &fakeStore{}
	d := NewDispatcher(&fakeBeginner{tx: tx}, store, func(context.Context, Record) error {
		t.Fatal("delivery should not run on an empty backlog")
		return nil
	}, testLogger(), DispatcherConfig{})

	summary, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if !tx.committed {
		t.Fatal("expected commit on empty backlog")
	}
	if len(store.marked) != 0 {
		t.Fatalf("expected no marks, got %v", store.marked)
	}
}

func TestRunOnceIsolatesDeliveryFailures(t *testing.T) {
	tx := &fakeTx{}
	store := &fakeStore{records: testRecords()}
	d := NewDispatcher(&fakeBeginner{tx: tx}, store, func(_ context.Context, rcd Record) error {
		if rcd.ID == 2 {
			return errors.New("broker unavailable")
		}
		return nil
	}, testLogger(), DispatcherConfig{})

	summary, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Selected != 3 || summary.Published != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(store.marked) != 2 || store.marked[0] != 1 || store.marked[1] != 3 {
		t.Fatalf("expected marks [1 3], got %v", store.marked)
	}
	if !tx.committed {
		t.Fatal("expected commit despite the failed row")
	}
}

func TestRunOnceClaimFailureRollsBack(t *testing.T) {
	tx := &fakeTx{}
	store := &fakeStore{fetchErr: errors.New("lock timeout")}
	d := NewDispatcher(&fakeBeginner{tx: tx}, store, func(context.Context, Record) error {
		return nil
	}, testLogger(), DispatcherConfig{})

	_, err := d.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if apperr.KindOf(err) != apperr.Infra {
		t.Fatalf("expected infra error, got %v", err)
	}
	if tx.committed {
		t.Fatal("expected no commit after claim failure")
	}
	if !tx.rolledBack {
		t.Fatal("expected rollback after claim failure")
	}
}

type ctxRecordingStore struct {
	records    []Record
	fetched    bool
	marked     []int64
	markCtxErr error
}

func (s *ctxRecordingStore) FetchUnpublished(context.Context, db.Querier, int) ([]Record, error) {
	if s.fetched {
		return nil, nil
	}
	s.fetched = true
	return s.records, nil
}

func (s *ctxRecordingStore) MarkPublished(ctx context.Context, _ db.Querier, ids []int64) error {
	s.markCtxErr = ctx.Err()
	s.marked = append(s.marked, ids...)
	return nil
}

// Shutdown arriving mid-batch must not reach into the running cycle: the
// marking update and commit still run on a live context, and the loop exits
// only afterwards.
func TestStopSignalDoesNotAbortInFlightCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tx := &fakeTx{}
	store := &ctxRecordingStore{records: testRecords()}
	d := NewDispatcher(&fakeBeginner{tx: tx}, store, func(context.Context, Record) error {
		cancel()
		return nil
	}, testLogger(), DispatcherConfig{PollInterval: time.Second})

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop after the cycle")
	}

	if store.markCtxErr != nil {
		t.Fatalf("marking phase saw a cancelled context: %v", store.markCtxErr)
	}
	if len(store.marked) != 3 {
		t.Fatalf("expected all 3 rows marked, got %v", store.marked)
	}
	if !tx.committed {
		t.Fatal("expected the in-flight cycle to commit")
	}
}

type countingStore struct {
	fetches atomic.Int32
}

func (c *countingStore) FetchUnpublished(context.Context, db.Querier, int) ([]Record, error) {
	c.fetches.Add(1)
	return nil, nil
}

func (c *countingStore) MarkPublished(context.Context, db.Querier, []int64) error {
	return nil
}

func TestRunPollsUntilCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &countingStore{}
	d := NewDispatcher(&fakeBeginner{tx: &fakeTx{}}, store, func(context.Context, Record) error {
		return nil
	}, testLogger(), DispatcherConfig{PollInterval: time.Second}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	// The first cycle runs before the ticker exists, so once the fake clock
	// sees a waiter the immediate drain has happened.
	clock.BlockUntil(1)
	if got := store.fetches.Load(); got != 1 {
		t.Fatalf("expected 1 fetch before the first tick, got %d", got)
	}

	clock.Advance(time.Second)
	deadline := time.After(5 * time.Second)
	for store.fetches.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the second cycle")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop on cancellation")
	}
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	tx := &fakeTx{}
	store := &fakeStore{records: testRecords()}
	d := NewDispatcher(&fakeBeginner{tx: tx}, store, func(context.Context, Record) error {
		return nil
	}, testLogger(), DispatcherConfig{BatchSize: 2})

	summary, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Selected != 2 || summary.Published != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
