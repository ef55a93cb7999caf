package outbox

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/services/order-service/internal/domain"
)

func integrationPool(t *testing.T) *db.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, url)
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Two dispatchers polling concurrently must never claim the same row: the
// second transaction's skip-locked select skips what the first one holds.
func TestConcurrentClaimsAreDisjoint(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()

	orderID := domain.GenerateOrderID()
	writer := NewWriter(pool)
	var events []domain.Event
	for i := 0; i < 6; i++ {
		events = append(events, domain.OrderCreated{
			OrderID: string(orderID),
			At:      time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		})
	}
	if err := writer.PublishBatch(ctx, events); err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}

	repo := NewRepository()

	tx1, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer func() { _ = tx1.Rollback(ctx) }()
	tx2, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer func() { _ = tx2.Rollback(ctx) }()

	first, err := repo.FetchUnpublished(ctx, tx1, 3)
	if err != nil {
		t.Fatalf("FetchUnpublished failed: %v", err)
	}
	second, err := repo.FetchUnpublished(ctx, tx2, 1000)
	if err != nil {
		t.Fatalf("FetchUnpublished failed: %v", err)
	}

	claimed := map[int64]bool{}
	for _, rcd := range first {
		claimed[rcd.ID] = true
	}
	for _, rcd := range second {
		if claimed[rcd.ID] {
			t.Fatalf("record %d claimed by both transactions", rcd.ID)
		}
	}
}

func TestMarkPublishedStampsRows(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()

	orderID := domain.GenerateOrderID()
	if err := NewWriter(pool).Publish(ctx, domain.OrderCreated{
		OrderID: string(orderID),
		At:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	repo := NewRepository()
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	records, err := repo.FetchUnpublished(ctx, tx, 1000)
	if err != nil {
		t.Fatalf("FetchUnpublished failed: %v", err)
	}
	var ids []int64
	for _, rcd := range records {
		if rcd.AggregateID == string(orderID) {
			ids = append(ids, rcd.ID)
		}
	}
	if len(ids) == 0 {
		t.Fatal("expected at least one claimable row")
	}
	if err := repo.MarkPublished(ctx, tx, ids); err != nil {
		t.Fatalf("MarkPublished failed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	var unpublished int
	err = pool.QueryRow(ctx,
		`SELECT count(*) FROM outbox WHERE aggregate_id = $1 AND published_at IS NULL`,
		string(orderID)).Scan(&unpublished)
	if err != nil {
		t.Fatalf("counting failed: %v", err)
	}
	if unpublished != 0 {
		t.Fatalf("expected all rows stamped, %d still unpublished", unpublished)
	}
}
