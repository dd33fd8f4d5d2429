package codes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
)

// InMemoryStore keeps codes in maps guarded by a single mutex.
type InMemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*models.RedeemCode
	byToken map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]*models.RedeemCode),
		byToken: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, code *models.RedeemCode) error {
	if code == nil {
		return fmt.Errorf("redeem code is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[code.CodeID]; ok {
		return ErrDuplicateCode
	}
	if _, ok := s.byToken[code.TokenHash]; ok {
		return ErrDuplicateCode
	}
	stored := *code
	s.byID[code.CodeID] = &stored
	s.byToken[code.TokenHash] = code.CodeID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, codeID string) (*models.RedeemCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byID[codeID]
	if !ok {
		return nil, fmt.Errorf("redeem code not found: %w", sentinel.ErrNotFound)
	}
	return clone(code), nil
}

func (s *InMemoryStore) FindByTokenHash(_ context.Context, tokenHash string) (*models.RedeemCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codeID, ok := s.byToken[tokenHash]
	if !ok {
		return nil, fmt.Errorf("redeem code not found: %w", sentinel.ErrNotFound)
	}
	return clone(s.byID[codeID]), nil
}

func (s *InMemoryStore) Claim(_ context.Context, codeID string, claim models.CodeClaim) (*models.RedeemCode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byID[codeID]
	if !ok {
		return nil, false, fmt.Errorf("redeem code not found: %w", sentinel.ErrNotFound)
	}
	won := applyClaim(code, claim)
	return clone(code), won, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, codeID, reason string, at time.Time) (*models.RedeemCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byID[codeID]
	if !ok {
		return nil, fmt.Errorf("redeem code not found: %w", sentinel.ErrNotFound)
	}
	if _, err := applyRevoke(code, reason, at); err != nil {
		return clone(code), err
	}
	return clone(code), nil
}

func clone(code *models.RedeemCode) *models.RedeemCode {
	c := *code
	if code.Claim != nil {
		claim := *code.Claim
		c.Claim = &claim
	}
	if code.RevokedAt != nil {
		t := *code.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}

var _ Store = (*InMemoryStore)(nil)
