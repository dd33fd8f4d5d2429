package claims

import (
	"context"
	"sync"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
)

// InMemoryStore keeps claims in a map guarded by a mutex.
type InMemoryStore struct {
	mu     sync.Mutex
	claims map[string]models.IssuanceClaim
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{claims: make(map[string]models.IssuanceClaim)}
}

func (s *InMemoryStore) Get(_ context.Context, key models.ClaimKey) (*models.IssuanceClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[key.String()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &claim, nil
}

func (s *InMemoryStore) InsertIfAbsent(_ context.Context, claim models.IssuanceClaim) (bool, *models.IssuanceClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := claim.Key().String()
	if existing, ok := s.claims[k]; ok {
		return false, &existing, nil
	}
	s.claims[k] = claim
	return true, nil, nil
}

// Len reports the number of stored claims.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

var _ Store = (*InMemoryStore)(nil)
