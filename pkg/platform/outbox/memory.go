package outbox

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in append order.
type MemoryStore struct {
	mu      sync.Mutex
	records []*Record
	byID    map[uuid.UUID]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]*Record)}
}

func (s *MemoryStore) Append(_ context.Context, records ...*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, dup := s.byID[r.ID]; dup {
			return fmt.Errorf("outbox record %s already exists", r.ID)
		}
	}
	for _, r := range records {
		cp := *r
		s.records = append(s.records, &cp)
		s.byID[cp.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) Backlog(_ context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Record
	for _, r := range s.records {
		if r.Relayed() {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *Record) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkRelayed(_ context.Context, at time.Time, ids ...uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if r, ok := s.byID[id]; ok && !r.Relayed() {
			stamp := at
			r.RelayedAt = &stamp
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) BacklogSize(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.records {
		if !r.Relayed() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var n int64
	for _, r := range s.records {
		if r.Relayed() && r.RelayedAt.Before(cutoff) {
			delete(s.byID, r.ID)
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}
