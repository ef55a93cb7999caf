package outbox

import (
	"context"

	"github.com/orderdesk/orderdesk/libs/db"
)

// Repository holds the two queries the dispatcher runs against the outbox
// table. Both take the caller's Querier so they join whatever transaction the
// dispatch cycle opened.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// FetchUnpublished claims up to limit pending rows in created_at order.
// FOR UPDATE SKIP LOCKED is the mutual-exclusion mechanism for horizontal
// scaling: rows already locked by a concurrent dispatcher's transaction are
// skipped instead of awaited, so no two instances ever claim the same row in
// one cycle.
func (r *Repository) FetchUnpublished(ctx context.Context, q db.Querier, limit int) ([]Record, error) {
	rows, err := q.Query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.AggregateID, &rcd.AggregateType, &rcd.EventType, &rcd.Payload, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// MarkPublished stamps published_at on the given rows in one statement.
// A nil/empty id set issues no update.
func (r *Repository) MarkPublished(ctx context.Context, q db.Querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		UPDATE outbox
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
