package codes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
	"pixpax/pkg/testutil"
)

type InMemoryCodeStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryCodeStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCodeStoreSuite))
}

func (s *InMemoryCodeStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Create(s.ctx, s.newCode("code-1", "hash-1")))
}

func (s *InMemoryCodeStoreSuite) newCode(codeID, tokenHash string) *models.RedeemCode {
	return &models.RedeemCode{
		CodeID:       codeID,
		TokenHash:    tokenHash,
		PolicyHash:   "policy-" + codeID,
		CollectionID: "c",
		Version:      "v1",
		Kind:         models.CodeKindFixedCard,
		CardID:       "c1",
		Status:       models.CodeStatusActive,
		MintRef:      "mint-" + codeID,
		IssuerKeyID:  "kid",
		IssuedAt:     s.now,
		ExpiresAt:    s.now.Add(time.Hour),
	}
}

func (s *InMemoryCodeStoreSuite) TestCreateRejectsDuplicates() {
	s.ErrorIs(s.store.Create(s.ctx, s.newCode("code-1", "other")), ErrDuplicateCode)
	s.ErrorIs(s.store.Create(s.ctx, s.newCode("code-2", "hash-1")), sentinel.ErrAlreadyExists)
}

func (s *InMemoryCodeStoreSuite) TestFind() {
	byID, err := s.store.FindByID(s.ctx, "code-1")
	s.Require().NoError(err)
	byHash, err := s.store.FindByTokenHash(s.ctx, "hash-1")
	s.Require().NoError(err)
	s.Equal(byID, byHash)

	_, err = s.store.FindByTokenHash(s.ctx, "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryCodeStoreSuite) TestClaimOnce() {
	first := models.CodeClaim{PackID: "pack-1", CollectorPubKey: "k1", ClaimedAt: s.now}
	code, won, err := s.store.Claim(s.ctx, "code-1", first)
	s.Require().NoError(err)
	s.True(won)
	s.Equal(models.CodeStatusClaimed, code.Status)

	code, won, err = s.store.Claim(s.ctx, "code-1", models.CodeClaim{PackID: "pack-2", CollectorPubKey: "k2", ClaimedAt: s.now.Add(time.Minute)})
	s.Require().NoError(err)
	s.False(won)
	s.Require().NotNil(code.Claim)
	s.Equal("pack-1", code.Claim.PackID)
	s.Equal("k1", code.Claim.CollectorPubKey)
}

func (s *InMemoryCodeStoreSuite) TestClaimMissing() {
	_, _, err := s.store.Claim(s.ctx, "nope", models.CodeClaim{})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryCodeStoreSuite) TestConcurrentClaimHasOneWinner() {
	result := testutil.Race(50, func(int) (bool, error) {
		_, won, err := s.store.Claim(s.ctx, "code-1", models.CodeClaim{PackID: "p", ClaimedAt: s.now})
		return won, err
	})
	s.Empty(result.Errors)
	s.Equal(1, result.Winners)
	s.Equal(49, result.Losers)
}

func (s *InMemoryCodeStoreSuite) TestRevoke() {
	s.Run("active to revoked", func() {
		code, err := s.store.Revoke(s.ctx, "code-1", "lost", s.now)
		s.Require().NoError(err)
		s.Equal(models.CodeStatusRevoked, code.Status)
		s.Equal("lost", code.RevokedReason)
		s.Require().NotNil(code.RevokedAt)
	})

	s.Run("revoking again keeps the first revocation", func() {
		code, err := s.store.Revoke(s.ctx, "code-1", "again", s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal("lost", code.RevokedReason)
		s.Equal(s.now, *code.RevokedAt)
	})

	s.Run("revoked code cannot be claimed", func() {
		code, won, err := s.store.Claim(s.ctx, "code-1", models.CodeClaim{PackID: "p"})
		s.Require().NoError(err)
		s.False(won)
		s.Equal(models.CodeStatusRevoked, code.Status)
	})
}

func (s *InMemoryCodeStoreSuite) TestRevokeClaimed() {
	_, _, err := s.store.Claim(s.ctx, "code-1", models.CodeClaim{PackID: "p", ClaimedAt: s.now})
	s.Require().NoError(err)
	code, err := s.store.Revoke(s.ctx, "code-1", "late", s.now)
	s.ErrorIs(err, ErrAlreadyClaimed)
	s.Equal(models.CodeStatusClaimed, code.Status)
}
