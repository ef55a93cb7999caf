package outbox

import "time"

// Record is one durable outbox row. Rows are append-only: after insertion
// only published_at ever changes, from null to a fixed timestamp, and rows
// are never deleted. The table doubles as an audit trail of emitted events.
type Record struct {
	ID            int64
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}
