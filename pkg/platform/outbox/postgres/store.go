// Package postgres is the outbox on the outbox table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixpax/pkg/platform/outbox"
)

// maxBacklog caps one Backlog read regardless of the caller's limit.
const maxBacklog = 1000

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) Append(ctx context.Context, records ...*outbox.Record) error {
	return insert(ctx, s.db, records)
}

// AppendTx writes records as part of tx so they commit with the state
// change they describe.
func (s *Store) AppendTx(ctx context.Context, tx *sql.Tx, records ...*outbox.Record) error {
	return insert(ctx, tx, records)
}

func insert(ctx context.Context, db execer, records []*outbox.Record) error {
	for _, r := range records {
		headers, err := json.Marshal(r.Headers)
		if err != nil {
			return fmt.Errorf("encode outbox headers: %w", err)
		}
		if r.Headers == nil {
			headers = []byte("{}")
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO outbox (id, record_key, record_type, headers, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.ID, r.Key, r.Type, headers, r.Payload, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert outbox record %s: %w", r.ID, err)
		}
	}
	return nil
}

// Backlog skips rows another relay has locked.
func (s *Store) Backlog(ctx context.Context, limit int) ([]*outbox.Record, error) {
	if limit <= 0 || limit > maxBacklog {
		limit = maxBacklog
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_key, record_type, headers, payload, created_at
		FROM outbox
		WHERE relayed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("read outbox backlog: %w", err)
	}
	defer rows.Close()

	var out []*outbox.Record
	for rows.Next() {
		var (
			r       outbox.Record
			headers []byte
		)
		if err := rows.Scan(&r.ID, &r.Key, &r.Type, &headers, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		if err := json.Unmarshal(headers, &r.Headers); err != nil {
			return nil, fmt.Errorf("decode headers of %s: %w", r.ID, err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) MarkRelayed(ctx context.Context, at time.Time, ids ...uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	return s.exec(ctx, "mark outbox relayed",
		`UPDATE outbox SET relayed_at = $1 WHERE id = ANY($2::text[]::uuid[]) AND relayed_at IS NULL`, at, keys)
}

func (s *Store) BacklogSize(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE relayed_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbox backlog: %w", err)
	}
	return n, nil
}

func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.exec(ctx, "prune outbox",
		`DELETE FROM outbox WHERE relayed_at IS NOT NULL AND relayed_at < $1`, cutoff)
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
