package service

import (
	"time"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/token"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/middleware/requesttime"
)

func (s *ServiceSuite) mint(svc *Service, req models.MintRequest) *models.MintResult {
	if req.CollectionID == "" {
		req.CollectionID, req.Version = "c", "v1"
	}
	minted, err := svc.MintRedeemCode(s.ctx, req)
	s.Require().NoError(err)
	return minted
}

func (s *ServiceSuite) TestMintRedeemCode() {
	svc := s.newService()
	minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})

	s.NotEmpty(minted.CodeID)
	s.Len(minted.TokenHash, 64)
	s.Contains(minted.RedeemURL, "https://pixpax.test/r?t=")
	s.Equal(s.now.Add(defaultCodeTTL), minted.ExpiresAt)

	code, err := s.codes.FindByID(s.ctx, minted.CodeID)
	s.Require().NoError(err)
	s.Equal(models.CodeStatusActive, code.Status)
	s.Equal(5, code.Count)
	s.Equal("week-2026-W10", code.DropID)
	s.Equal(minted.TokenHash, code.TokenHash)
	s.Len(s.sink.OfType(events.CodeMinted), 1)

	s.Run("rejects unknown kind", func() {
		_, err := svc.MintRedeemCode(s.ctx, models.MintRequest{CollectionID: "c", Version: "v1", Kind: "bundle"})
		s.Equal(ReasonInvalidCodeKind, dErrors.ReasonOf(err))
	})
	s.Run("fixed card must be in the index", func() {
		_, err := svc.MintRedeemCode(s.ctx, models.MintRequest{CollectionID: "c", Version: "v1", Kind: models.CodeKindFixedCard, CardID: "nope"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Equal(ReasonUnknownCard, dErrors.ReasonOf(err))
	})
}

func (s *ServiceSuite) TestRedeemFixedCardOnce() {
	svc := s.newService()
	minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindFixedCard, CardID: "s1-card1"})
	_, firstKey := s.collectorKey()

	first, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: firstKey})
	s.Require().NoError(err)
	s.Require().NotNil(first.Pack, first.Reason)
	s.Len(first.Pack.Cards, 1)
	s.Equal("s1-card1", first.Pack.Cards[0].CardID)
	s.Equal(models.ModeRedeem, first.Pack.Issuance.Mode)

	receipt := first.Pack.Receipt
	s.Require().NotNil(receipt)
	s.Equal(minted.TokenHash, receipt.Payload.TokenHash)
	s.Equal(minted.CodeID, receipt.Payload.CodeID)
	s.Equal(s.now.Unix(), receipt.Payload.ServerTime)
	ok, err := token.VerifyReceiptV1(receipt.Payload, receipt.Signature, s.signer.PublicKeyPEM())
	s.Require().NoError(err)
	s.True(ok)

	_, secondKey := s.collectorKey()
	second, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: secondKey})
	s.Require().NoError(err)
	s.Nil(second.Pack)
	s.Require().NotNil(second.Conflict)
	s.Equal(models.StatusAlreadyClaimed, second.Conflict.Status)
	s.Equal(first.Pack.PackID, second.Conflict.PackID)
	s.Equal(minted.MintRef, second.Conflict.MintRef)

	s.Len(s.sink.OfType(events.CodeRedeemed), 1)
	s.Len(s.sink.OfType(events.PackClaimed), 1)
}

func (s *ServiceSuite) TestRedeemPackCode() {
	svc := s.newService()
	count := 3
	minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack, Count: &count, DropID: "promo-1"})
	_, key := s.collectorKey()

	result, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key})
	s.Require().NoError(err)
	s.Require().NotNil(result.Pack)
	s.Len(result.Pack.Cards, 3)
	s.Equal("promo-1", result.Pack.Issuance.DropID)
	s.Equal(HashIssuedTo(collectorKeyScope+signing.KeyID(key)), result.Pack.IssuedTo)
}

func (s *ServiceSuite) TestRedeemFailuresAreValues() {
	svc := s.newService(WithCollectorProofRequired(true))
	collector, key := s.collectorKey()

	s.Run("garbage token", func() {
		result, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: "not-a-token", CollectorPubKey: key})
		s.Require().NoError(err)
		s.Equal(token.ReasonInvalidFormat, result.Reason)
	})

	s.Run("proof required", func() {
		minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})
		result, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key})
		s.Require().NoError(err)
		s.Equal(ReasonCollectorProofRequired, result.Reason)
	})

	s.Run("proof by another key", func() {
		minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})
		other, _ := s.collectorKey()
		sig, err := other.Sign([]byte(minted.TokenHash))
		s.Require().NoError(err)
		result, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key, CollectorSig: signing.EncodeB64URL(sig)})
		s.Require().NoError(err)
		s.Equal(ReasonCollectorProofInvalid, result.Reason)
	})

	s.Run("valid proof", func() {
		minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})
		sig, err := collector.Sign([]byte(minted.TokenHash))
		s.Require().NoError(err)
		result, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key, CollectorSig: signing.EncodeB64URL(sig)})
		s.Require().NoError(err)
		s.NotNil(result.Pack)
	})

	s.Run("expired", func() {
		minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack, TTL: time.Hour})
		later := requesttime.WithTime(s.ctx, s.now.Add(2*time.Hour))
		result, err := svc.RedeemToken(later, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key})
		s.Require().NoError(err)
		s.Equal(token.ReasonExpired, result.Reason)
	})

	s.Run("invalid collector key", func() {
		_, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: "a.b", CollectorPubKey: "nope"})
		s.Equal(ReasonInvalidCollectorKey, dErrors.ReasonOf(err))
	})
}

func (s *ServiceSuite) TestRevokeCode() {
	svc := s.newService()
	minted := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})

	code, err := svc.RevokeCode(s.ctx, minted.CodeID, "leaked")
	s.Require().NoError(err)
	s.Equal(models.CodeStatusRevoked, code.Status)
	_, err = svc.RevokeCode(s.ctx, minted.CodeID, "again")
	s.Require().NoError(err)
	s.Len(s.sink.OfType(events.CodeRevoked), 1)

	_, key := s.collectorKey()
	result, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: minted.Token, CollectorPubKey: key})
	s.Require().NoError(err)
	s.Equal(ReasonCodeRevoked, result.Reason)

	s.Run("claimed code cannot be revoked", func() {
		claimed := s.mint(svc, models.MintRequest{Kind: models.CodeKindPack})
		_, err := svc.RedeemToken(s.ctx, models.RedeemRequest{Token: claimed.Token, CollectorPubKey: key})
		s.Require().NoError(err)
		_, err = svc.RevokeCode(s.ctx, claimed.CodeID, "late")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown code", func() {
		_, err := svc.RevokeCode(s.ctx, "missing", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
