package service

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"go.uber.org/mock/gomock"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/service/mocks"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/sentinel"
)

// Collaborator failures that cannot be provoked through the in-memory stores.

func (s *ServiceSuite) TestLedgerFailureDoesNotFailIssuance() {
	ctrl := gomock.NewController(s.T())
	audit := mocks.NewMockAuditSink(ctrl)
	audit.EXPECT().AppendReceipt(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("disk full"))

	svc := s.newService(WithAuditSink(audit))
	result := s.issue(svc, models.IssueRequest{UserKey: "alice"})
	s.Nil(result.Audit)
	s.NotEmpty(result.Entry.Signature)
}

func (s *ServiceSuite) TestEventFailureDoesNotFailIssuance() {
	ctrl := gomock.NewController(s.T())
	publisher := mocks.NewMockEventPublisher(ctrl)
	publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	svc := s.newService(WithEvents(publisher))
	result := s.issue(svc, models.IssueRequest{UserKey: "alice"})
	s.NotEmpty(result.PackID)
}

func (s *ServiceSuite) TestPackLogFailureIsInternal() {
	ctrl := gomock.NewController(s.T())
	packLog := mocks.NewMockPackLog(ctrl)
	packLog.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("bucket unreachable"))

	svc := New(s.content, s.claims, s.codes, packLog, s.signer, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := svc.IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "alice"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.claims.Get(s.ctx, models.ClaimKey{CollectionID: "c", Version: "v1", DropID: "week-2026-W10", IssuedTo: HashIssuedTo("user:alice")})
	s.ErrorIs(err, sentinel.ErrNotFound, "no claim is recorded for a pack that was never stored")
}

func (s *ServiceSuite) TestRedeemLosingClaimRaceReturnsWinner() {
	svc := s.newService()
	minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindFixedCard, CardID: "s1-card2"})
	stored, err := s.codes.FindByID(s.ctx, minted.CodeID)
	s.Require().NoError(err)

	winner := *stored
	winner.Status = models.CodeStatusClaimed
	winner.Claim = &models.CodeClaim{PackID: "winner-pack", ClaimedAt: s.now.Add(-time.Second)}

	ctrl := gomock.NewController(s.T())
	codeStore := mocks.NewMockCodeStore(ctrl)
	codeStore.EXPECT().FindByTokenHash(gomock.Any(), minted.TokenHash).Return(stored, nil)
	codeStore.EXPECT().Claim(gomock.Any(), minted.CodeID, gomock.Any()).Return(&winner, false, nil)

	racing := New(s.content, s.claims, codeStore, s.packs, s.signer, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, key := s.collectorKey()
	result, err := racing.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key})
	s.Require().NoError(err)
	s.Nil(result.Pack)
	s.Require().NotNil(result.Conflict)
	s.Equal("winner-pack", result.Conflict.PackID)
}

func (s *ServiceSuite) TestRedeemRejectsPolicyMismatch() {
	svc := s.newService()
	minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})
	stored, err := s.codes.FindByID(s.ctx, minted.CodeID)
	s.Require().NoError(err)
	stored.PolicyHash = "tampered"

	ctrl := gomock.NewController(s.T())
	codeStore := mocks.NewMockCodeStore(ctrl)
	codeStore.EXPECT().FindByTokenHash(gomock.Any(), minted.TokenHash).Return(stored, nil)

	mismatched := New(s.content, s.claims, codeStore, s.packs, s.signer)
	_, key := s.collectorKey()
	result, err := mismatched.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key})
	s.Require().NoError(err)
	s.Equal(ReasonTokenCodeMismatch, result.Reason)
}

func (s *ServiceSuite) TestContentFailureMapsToUnavailable() {
	ctrl := gomock.NewController(s.T())
	contentStore := mocks.NewMockContentStore(ctrl)
	contentStore.EXPECT().GetIndex(gomock.Any(), "c", "v1").Return(nil, sentinel.ErrUnavailable)

	svc := New(contentStore, s.claims, s.codes, s.packs, s.signer)
	_, err := svc.IssuePack(s.ctx, models.IssueRequest{CollectionID: "c", Version: "v1", UserKey: "alice"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
