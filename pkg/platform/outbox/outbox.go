// Package outbox stores events next to the state change that produced them
// until a relay has handed them to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one event awaiting relay. Key becomes the Kafka record key and
// Headers are copied onto the Kafka record.
type Record struct {
	ID        uuid.UUID
	Key       string
	Type      string
	Headers   map[string]string
	Payload   []byte
	CreatedAt time.Time
	RelayedAt *time.Time
}

func NewRecord(key, recordType string, payload []byte, createdAt time.Time) *Record {
	return &Record{
		ID:        uuid.New(),
		Key:       key,
		Type:      recordType,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}

// WithHeader sets a header and returns r.
func (r *Record) WithHeader(k, v string) *Record {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[k] = v
	return r
}

func (r *Record) Relayed() bool { return r.RelayedAt != nil }

// Store is safe for concurrent use.
type Store interface {
	Append(ctx context.Context, records ...*Record) error
	// Backlog returns up to limit unrelayed records in creation order.
	Backlog(ctx context.Context, limit int) ([]*Record, error)
	// MarkRelayed stamps the given records and reports how many were still
	// unrelayed.
	MarkRelayed(ctx context.Context, at time.Time, ids ...uuid.UUID) (int64, error)
	BacklogSize(ctx context.Context) (int64, error)
	// Prune deletes records relayed before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
