//go:build integration

package codes_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/store/codes"
	"pixpax/pkg/platform/sentinel"
	"pixpax/pkg/testutil"
	"pixpax/pkg/testutil/containers"
)

type PostgresCodeStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *codes.PostgresStore
}

func TestPostgresCodeStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCodeStoreSuite))
}

func (s *PostgresCodeStoreSuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.store = codes.NewPostgres(s.postgres.DB)
}

func (s *PostgresCodeStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Reset(context.Background()))
}

func (s *PostgresCodeStoreSuite) newCode() *models.RedeemCode {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.NewString()
	return &models.RedeemCode{
		CodeID:       id,
		TokenHash:    "hash-" + id,
		PolicyHash:   "policy-" + id,
		CollectionID: "c",
		Version:      "v1",
		Kind:         models.CodeKindPack,
		DropID:       "d1",
		Count:        3,
		Status:       models.CodeStatusActive,
		MintRef:      uuid.NewString(),
		IssuerKeyID:  "kid",
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
	}
}

func (s *PostgresCodeStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	code := s.newCode()
	s.Require().NoError(s.store.Create(ctx, code))
	s.ErrorIs(s.store.Create(ctx, code), codes.ErrDuplicateCode)

	got, err := s.store.FindByTokenHash(ctx, code.TokenHash)
	s.Require().NoError(err)
	s.Equal(code.CodeID, got.CodeID)
	s.Equal(models.CodeKindPack, got.Kind)
	s.Equal(3, got.Count)
	s.Nil(got.Claim)

	_, err = s.store.FindByID(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresCodeStoreSuite) TestConcurrentClaim() {
	ctx := context.Background()
	code := s.newCode()
	s.Require().NoError(s.store.Create(ctx, code))

	result := testutil.Race(20, func(int) (bool, error) {
		_, won, err := s.store.Claim(ctx, code.CodeID, models.CodeClaim{
			PackID:          uuid.NewString(),
			CollectorPubKey: "collector",
			ClaimedAt:       time.Now().UTC(),
			Response:        json.RawMessage(`{"ok":true}`),
		})
		return won, err
	})
	s.Empty(result.Errors)
	s.Equal(1, result.Winners)
	s.Equal(19, result.Losers)

	stored, err := s.store.FindByID(ctx, code.CodeID)
	s.Require().NoError(err)
	s.Equal(models.CodeStatusClaimed, stored.Status)
	s.Require().NotNil(stored.Claim)
	s.JSONEq(`{"ok":true}`, string(stored.Claim.Response))
}

func (s *PostgresCodeStoreSuite) TestRevokeTransitions() {
	ctx := context.Background()
	code := s.newCode()
	s.Require().NoError(s.store.Create(ctx, code))

	at := time.Now().UTC().Truncate(time.Microsecond)
	revoked, err := s.store.Revoke(ctx, code.CodeID, "lost", at)
	s.Require().NoError(err)
	s.Equal(models.CodeStatusRevoked, revoked.Status)

	again, err := s.store.Revoke(ctx, code.CodeID, "other", at.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal("lost", again.RevokedReason)

	_, won, err := s.store.Claim(ctx, code.CodeID, models.CodeClaim{PackID: "p", ClaimedAt: at})
	s.Require().NoError(err)
	s.False(won)

	claimed := s.newCode()
	s.Require().NoError(s.store.Create(ctx, claimed))
	_, _, err = s.store.Claim(ctx, claimed.CodeID, models.CodeClaim{PackID: "p", ClaimedAt: at})
	s.Require().NoError(err)
	_, err = s.store.Revoke(ctx, claimed.CodeID, "late", at)
	s.ErrorIs(err, codes.ErrAlreadyClaimed)
}
