package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ContentStore,CodeStore,PackLog,AuditSink,EventPublisher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/ledger"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/rng"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/store/claims"
	"pixpax/internal/pixpax/store/codes"
	"pixpax/internal/pixpax/store/content"
	"pixpax/internal/pixpax/store/packs"
	"pixpax/internal/pixpax/verify"
	"pixpax/internal/platform/objectstore"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/middleware/requesttime"
	"pixpax/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	gw      *objectstore.Memory
	content *content.Store
	claims  *claims.InMemoryStore
	codes   *codes.InMemoryStore
	packs   *packs.Store
	ledger  *ledger.Ledger
	sink    *events.MemorySink
	signer  *signing.Signer
	catalog testutil.Catalog
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	s.ctx = requesttime.WithTime(context.Background(), s.now)
	s.gw = objectstore.NewMemory()
	s.content = content.New(s.gw, "")
	s.claims = claims.NewInMemory()
	s.codes = codes.NewInMemory()
	s.packs = packs.New(s.gw, "")
	s.ledger = ledger.New(s.gw, "", ledger.WithClock(func() time.Time { return s.now }))
	s.sink = events.NewMemorySink()
	s.catalog = testutil.NewCatalogBuilder().WithSeries("s1", 3).WithSeries("s2", 2).Build()
	s.Require().NoError(s.catalog.Seed(s.ctx, s.content))

	key, err := signing.GenerateKey()
	s.Require().NoError(err)
	s.signer, err = signing.NewSignerFromKey(key, "")
	s.Require().NoError(err)
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithAuditSink(s.ledger),
		WithEvents(events.NewPublisher(s.sink)),
		WithRedeemBaseURL("https://pixpax.test/"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(s.content, s.claims, s.codes, s.packs, s.signer, append(base, opts...)...)
}

func (s *ServiceSuite) collectorKey() (*signing.Signer, string) {
	key, err := signing.GenerateKey()
	s.Require().NoError(err)
	signer, err := signing.NewSignerFromKey(key, "")
	s.Require().NoError(err)
	return signer, signer.PublicKeyPEM()
}

func (s *ServiceSuite) issue(svc *Service, req models.IssueRequest) *models.PackResult {
	if req.CollectionID == "" {
		req.CollectionID, req.Version = "c", "v1"
	}
	result, err := svc.IssuePack(s.ctx, req)
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) TestWeeklyIssueIsIdempotent() {
	svc := s.newService()

	first := s.issue(svc, models.IssueRequest{UserKey: "Alice"})
	s.Len(first.Cards, 5)
	s.Equal(models.ModeWeekly, first.Issuance.Mode)
	s.False(first.Issuance.Reused)
	s.Equal("week-2026-W10", first.Issuance.DropID)
	s.Require().NotNil(first.Entry)
	s.Equal(s.signer.KeyID(), *first.Entry.Payload.IssuerKeyID)
	s.Require().NotNil(first.Audit)

	second := s.issue(svc, models.IssueRequest{UserKey: "  alice "})
	s.True(second.Issuance.Reused)
	s.Equal(first.PackID, second.PackID)
	s.Equal(first.PackRoot, second.PackRoot)
	s.Equal(first.IssuedTo, second.IssuedTo)

	s.Len(s.sink.OfType(events.PackIssued), 1)

	other := s.issue(svc, models.IssueRequest{UserKey: "bob"})
	s.NotEqual(first.PackID, other.PackID)
}

func (s *ServiceSuite) TestIssuedPackVerifies() {
	svc := s.newService()
	result := s.issue(svc, models.IssueRequest{UserKey: "alice"})

	verdict, err := svc.VerifyPack(s.ctx, verify.Ref{PackID: result.PackID, CollectionID: "c", Version: "v1"})
	s.Require().NoError(err)
	s.True(verdict.OK, verdict.Reason)
	s.Equal(true, verdict.Checks.Signature)

	proof, err := svc.ReceiptProof(s.ctx, result.Audit.SegmentKey, result.PackID)
	s.Require().NoError(err)
	s.True(proof.OK, proof.Reason)

	inclusion, err := svc.PackProof(s.ctx, "c", "v1", result.PackID, 3)
	s.Require().NoError(err)
	s.True(inclusion.Valid)
	s.Equal(result.Cards[3].CardID, inclusion.CardID)
	s.Equal(result.ItemHashes[3], inclusion.ItemHash)

	_, err = svc.PackProof(s.ctx, "c", "v1", result.PackID, 5)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestDrawFollowsRandomSource() {
	svc := s.newService(WithRNG(rng.Sequence(4, 0, 2)), WithDefaultPackCount(3))
	result := s.issue(svc, models.IssueRequest{UserKey: "alice"})
	ids := []string{result.Cards[0].CardID, result.Cards[1].CardID, result.Cards[2].CardID}
	s.Equal([]string{"s2-card2", "s1-card1", "s1-card3"}, ids)
	s.Equal(result.ItemHashes[1], result.Cards[1].ItemHash)
}

func (s *ServiceSuite) TestRetiredSeriesAreExcluded() {
	svc := s.newService(WithRNG(rng.Fixed(0)))
	_, err := svc.RetireSeries(s.ctx, "c", "v1", "s1", "end of season")
	s.Require().NoError(err)

	result := s.issue(svc, models.IssueRequest{UserKey: "alice"})
	for _, card := range result.Cards {
		s.Equal("s2", card.SeriesID)
	}

	_, err = svc.RetireSeries(s.ctx, "c", "v1", "s2", "")
	s.Require().NoError(err)
	_, err = svc.IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "bob"})
	s.True(dErrors.HasCode(err, dErrors.CodePolicyViolation))
	s.Equal(ReasonAllSeriesRetired, dErrors.ReasonOf(err))

	s.Len(s.sink.OfType(events.SeriesRetired), 2)
}

func (s *ServiceSuite) TestOverrideIssuance() {
	svc := s.newService()

	s.Run("requires admin", func() {
		_, err := svc.IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "alice", Override: true})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(ReasonAdminRequired, dErrors.ReasonOf(err))
	})

	s.Run("clamps count and never reuses", func() {
		count := 99
		req := models.IssueRequest{UserKey: "alice", Override: true, IsAdmin: true, Count: &count}
		first := s.issue(svc, req)
		second := s.issue(svc, req)
		s.Len(first.Cards, 50)
		s.Equal(models.ModeOverride, first.Issuance.Mode)
		s.True(first.Issuance.Override)
		s.NotEqual(first.PackID, second.PackID)
	})
}

func (s *ServiceSuite) TestDevUntracked() {
	s.Run("disabled by default", func() {
		_, err := s.newService().IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "alice", DevUntracked: true})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(ReasonDevUntrackedDisabled, dErrors.ReasonOf(err))
	})

	s.Run("cannot combine with override", func() {
		_, err := s.newService().IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "alice", DevUntracked: true, Override: true})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unsigned and skipped on verify", func() {
		svc := s.newService(WithDevUntracked(true))
		result := s.issue(svc, models.IssueRequest{UserKey: "alice", DevUntracked: true})
		s.True(result.Untracked)
		s.Nil(result.Audit)
		s.Empty(result.Entry.Signature)
		s.Equal(fmt.Sprintf("dev-%d", s.now.UnixMilli()), result.Issuance.DropID)

		verdict, err := svc.VerifyPack(s.ctx, verify.Ref{PackID: result.PackID, CollectionID: "c", Version: "v1"})
		s.Require().NoError(err)
		s.True(verdict.OK)
		s.Equal(models.SignatureSkippedUntracked, verdict.Checks.Signature)
	})
}

func (s *ServiceSuite) TestIssueValidation() {
	svc := s.newService()
	_, err := svc.IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "   "})
	s.Equal(ReasonMissingUserKey, dErrors.ReasonOf(err))

	_, err = svc.IssuePack(s.ctx, models.IssueRequest{Version: "v1", UserKey: "alice"})
	s.Equal(ReasonMissingScope, dErrors.ReasonOf(err))

	_, err = svc.IssuePack(s.ctx, models.IssueRequest{CollectionID: "missing", Version: "v1", UserKey: "alice"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(ReasonContentMissing, dErrors.ReasonOf(err))
}

func (s *ServiceSuite) TestCanonicalUserKey() {
	s.Equal("user:alice", CanonicalUserKey(" Alice "))
	s.Equal("device:abc", CanonicalUserKey("DEVICE:abc"))
	s.Equal("", CanonicalUserKey("  "))
	s.Len(HashIssuedTo("user:alice"), 64)
}

func (s *ServiceSuite) TestSeedCollectionIsIdempotent() {
	svc := s.newService()
	catalog := testutil.NewCatalogBuilder().WithCollection("fresh", "v2").WithSeries("a", 2).Build()
	req := models.SeedRequest{Collection: catalog.Collection, Index: catalog.Index, Cards: catalog.Cards}

	first, err := svc.SeedCollection(s.ctx, req)
	s.Require().NoError(err)
	s.True(first.CollectionCreated)
	s.True(first.IndexCreated)
	s.Equal(2, first.CardsCreated)

	second, err := svc.SeedCollection(s.ctx, req)
	s.Require().NoError(err)
	s.False(second.CollectionCreated)
	s.Equal(2, second.CardsExisting)
	s.Len(s.sink.OfType(events.CollectionCreated), 1)

	req.Cards[0].Version = "other"
	_, err = svc.SeedCollection(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRetireUnknownSeries() {
	_, err := s.newService().RetireSeries(s.ctx, "c", "v1", "nope", "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(ReasonUnknownSeries, dErrors.ReasonOf(err))
}
