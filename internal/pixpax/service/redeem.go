package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pixpax/internal/pixpax/domain/policy"
	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/store/codes"
	"pixpax/internal/pixpax/token"
	"pixpax/internal/platform/tracer"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/middleware/requesttime"
)

// Redemption outcomes recorded in metrics.
const (
	outcomeClaimed  = "claimed"
	outcomeConflict = "conflict"
	outcomeRejected = "rejected"
)

// MintRedeemCode creates a one-time code and the signed v3 token bound to it.
func (s *Service) MintRedeemCode(ctx context.Context, req models.MintRequest) (result *models.MintResult, err error) {
	collectionID, version := strings.TrimSpace(req.CollectionID), strings.TrimSpace(req.Version)
	if collectionID == "" || version == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonMissingScope, "collectionId and version are required")
	}
	kind, ok := models.ParseCodeKind(string(req.Kind))
	if !ok {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonInvalidCodeKind, "kind must be pack or fixed-card")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanMintCode,
		tracer.String(tracer.AttrCollectionID, collectionID),
		tracer.String(tracer.AttrVersion, version),
	)
	defer func() { span.End(err) }()

	index, err := s.content.GetIndex(ctx, collectionID, version)
	if err != nil {
		return nil, storeError(err, ReasonContentMissing, "load collection index")
	}

	now := requesttime.Now(ctx).UTC()
	code := &models.RedeemCode{
		CodeID:       uuid.NewString(),
		CollectionID: collectionID,
		Version:      version,
		Kind:         kind,
		DropID:       strings.TrimSpace(req.DropID),
		Status:       models.CodeStatusActive,
		MintRef:      uuid.NewString(),
		IssuerKeyID:  s.issuer.KeyID(),
		IssuedAt:     now,
	}
	if code.DropID == "" {
		code.DropID = policy.ISOWeekDropID(now)
	}
	switch kind {
	case models.CodeKindFixedCard:
		cardID := strings.TrimSpace(req.CardID)
		if _, ok := index.CardMap[cardID]; !ok || cardID == "" {
			return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonUnknownCard, "cardId is not part of the collection")
		}
		code.CardID = cardID
	case models.CodeKindPack:
		code.Count = policy.DefaultPackCount
		if req.Count != nil {
			code.Count = min(max(*req.Count, policy.MinPackCount), policy.MaxPackCount)
		}
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.codeTTL
	}
	code.ExpiresAt = now.Add(ttl).Truncate(time.Second)

	policyHash, err := token.PolicyHash(code.Policy())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash code policy")
	}
	signed, err := token.SignV3(token.PayloadV3{
		V: token.VersionV3,
		K: s.issuer.KeyID(),
		C: policyHash,
		E: code.ExpiresAt.Unix(),
	}, s.issuer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign redeem token")
	}
	code.PolicyHash = policyHash
	code.TokenHash = signed.TokenHash

	if err := s.codes.Create(ctx, code); err != nil {
		return nil, storeError(err, "", "store redeem code")
	}
	span.SetAttributes(tracer.String(tracer.AttrCodeID, code.CodeID))

	s.emit(ctx, events.CodeMinted, now, events.CodeMintedPayload{
		CodeID:       code.CodeID,
		CollectionID: collectionID,
		Version:      version,
		Kind:         string(kind),
		MintRef:      code.MintRef,
		IssuerKeyID:  code.IssuerKeyID,
		ExpiresAt:    code.ExpiresAt.Format(time.RFC3339),
	})
	if s.metrics != nil {
		s.metrics.IncMinted(string(kind))
	}

	return &models.MintResult{
		Token:     signed.Token,
		TokenHash: signed.TokenHash,
		CodeID:    code.CodeID,
		MintRef:   code.MintRef,
		RedeemURL: s.redeemURL(signed.Token),
		ExpiresAt: code.ExpiresAt,
	}, nil
}

func (s *Service) redeemURL(tok string) string {
	return strings.TrimRight(s.redeemBaseURL, "/") + redeemPath + "?t=" + url.QueryEscape(tok)
}

// RedeemToken spends a token exactly once. Token, policy and proof failures
// are returned as RedeemResult.Reason; a code already claimed by anyone
// yields RedeemResult.Conflict.
func (s *Service) RedeemToken(ctx context.Context, req models.RedeemRequest) (result *models.RedeemResult, err error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonMissingToken, "token is required")
	}
	collectorPEM := signing.NormalizePublicPEM(req.CollectorPubKey)
	if _, err := signing.ParsePublicKey(collectorPEM); err != nil {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonInvalidCollectorKey, "collectorPubKey must be a P-256 public key PEM")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanRedeem)
	start := time.Now()
	defer func() {
		outcome := outcomeRejected
		switch {
		case result != nil && result.Pack != nil:
			outcome = outcomeClaimed
		case result != nil && result.Conflict != nil:
			outcome = outcomeConflict
		case result != nil:
			span.SetAttributes(tracer.String(tracer.AttrReason, result.Reason))
		}
		if s.metrics != nil && err == nil {
			s.metrics.IncRedemption(outcome)
			s.metrics.ObserveRedeem(time.Since(start).Seconds())
		}
		span.End(err)
	}()

	now := requesttime.Now(ctx).UTC()
	verified := s.tokens.Verify(ctx, req.Token, now)
	if !verified.OK {
		return &models.RedeemResult{Reason: verified.Reason}, nil
	}

	code, err := s.codes.FindByTokenHash(ctx, verified.TokenHash)
	if err != nil {
		return nil, storeError(err, ReasonCodeNotFound, "redeem code not found")
	}
	span.SetAttributes(tracer.String(tracer.AttrCodeID, code.CodeID))
	if code.PolicyHash != verified.Payload.C {
		return &models.RedeemResult{Reason: ReasonTokenCodeMismatch}, nil
	}
	switch code.Status {
	case models.CodeStatusRevoked:
		return &models.RedeemResult{Reason: ReasonCodeRevoked}, nil
	case models.CodeStatusClaimed:
		return &models.RedeemResult{Conflict: conflictOf(code)}, nil
	}

	if reason := s.checkCollectorProof(collectorPEM, verified.TokenHash, req.CollectorSig); reason != "" {
		return &models.RedeemResult{Reason: reason}, nil
	}

	built, err := s.buildRedeemPack(ctx, code, collectorPEM, now)
	if err != nil {
		return nil, err
	}
	pack := built.result(models.IssuanceInfo{Mode: models.ModeRedeem, Override: true, DropID: code.DropID})
	receipt, err := token.SignReceiptV1(models.ReceiptPayload{
		V:               token.ReceiptVersion,
		ReceiptKeyID:    s.receipts.KeyID(),
		TokenHash:       verified.TokenHash,
		IssuerKeyID:     verified.Payload.K,
		CollectorPubKey: collectorPEM,
		MintRef:         code.MintRef,
		ServerTime:      now.Unix(),
		CollectionID:    code.CollectionID,
		Version:         code.Version,
		Kind:            string(code.Kind),
		CodeID:          code.CodeID,
	}, s.receipts)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign redemption receipt")
	}
	pack.Receipt = receipt

	response, err := json.Marshal(pack)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode redemption result")
	}
	stored, won, err := s.codes.Claim(ctx, code.CodeID, models.CodeClaim{
		PackID:          pack.PackID,
		CollectorPubKey: collectorPEM,
		ClaimedAt:       now,
		Response:        response,
	})
	if err != nil {
		return nil, storeError(err, ReasonCodeNotFound, "claim redeem code")
	}
	if !won {
		if stored.Status == models.CodeStatusRevoked {
			return &models.RedeemResult{Reason: ReasonCodeRevoked}, nil
		}
		return &models.RedeemResult{Conflict: conflictOf(stored)}, nil
	}

	if err := s.recordPack(ctx, built.pack); err != nil {
		// The code is spent; the caller still gets its pack.
		s.logger.ErrorContext(ctx, "failed to record redeemed pack", "pack_id", pack.PackID, "error", err)
	}
	pack.Audit = s.appendAudit(ctx, built)

	client := events.ClientFromContext(ctx)
	s.emit(ctx, events.PackClaimed, now, events.PackClaimedPayload{
		PackID:       pack.PackID,
		CodeID:       code.CodeID,
		CollectionID: code.CollectionID,
		Version:      code.Version,
		Client:       client,
	})
	s.emit(ctx, events.CodeRedeemed, now, events.CodeRedeemedPayload{
		CodeID:    code.CodeID,
		PackID:    pack.PackID,
		TokenHash: verified.TokenHash,
		MintRef:   code.MintRef,
		Client:    client,
	})
	span.SetAttributes(tracer.String(tracer.AttrPackID, pack.PackID))
	return &models.RedeemResult{Pack: pack}, nil
}

// checkCollectorProof verifies collectorSig over the token hash string.
func (s *Service) checkCollectorProof(collectorPEM, tokenHash, collectorSig string) string {
	if strings.TrimSpace(collectorSig) == "" {
		if s.requireCollectorProof {
			return ReasonCollectorProofRequired
		}
		return ""
	}
	sig, err := signing.DecodeSignature(collectorSig)
	if err != nil || !signing.VerifyPEM(collectorPEM, []byte(tokenHash), sig) {
		return ReasonCollectorProofInvalid
	}
	return ""
}

func (s *Service) buildRedeemPack(ctx context.Context, code *models.RedeemCode, collectorPEM string, now time.Time) (*builtPack, error) {
	cardIDs := []string{code.CardID}
	if code.Kind == models.CodeKindPack {
		var err error
		if cardIDs, err = s.drawCards(ctx, code.CollectionID, code.Version, code.DropID, code.Count); err != nil {
			return nil, err
		}
	}
	cards, err := s.loadCards(ctx, code.CollectionID, code.Version, cardIDs)
	if err != nil {
		return nil, err
	}
	issuedTo := HashIssuedTo(collectorKeyScope + signing.KeyID(collectorPEM))
	return s.buildPack(code.CollectionID, code.Version, code.DropID, issuedTo, now, cards, false)
}

func conflictOf(code *models.RedeemCode) *models.ClaimedConflict {
	c := &models.ClaimedConflict{
		Status:  models.StatusAlreadyClaimed,
		CodeID:  code.CodeID,
		MintRef: code.MintRef,
	}
	if code.Claim != nil {
		c.PackID = code.Claim.PackID
		c.ClaimedAt = code.Claim.ClaimedAt
	}
	return c
}

// RevokeCode disables an active code. Revoking twice is a no-op; revoking a
// claimed code is a conflict.
func (s *Service) RevokeCode(ctx context.Context, codeID, reason string) (*models.RedeemCode, error) {
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonCodeNotFound, "codeId is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}
	before, err := s.codes.FindByID(ctx, codeID)
	if err != nil {
		return nil, storeError(err, ReasonCodeNotFound, "redeem code not found")
	}
	now := requesttime.Now(ctx).UTC()
	code, err := s.codes.Revoke(ctx, codeID, reason, now)
	if err != nil {
		if errors.Is(err, codes.ErrAlreadyClaimed) {
			return nil, dErrors.NewReason(dErrors.CodeConflict, models.StatusAlreadyClaimed, "redeem code is already claimed")
		}
		return nil, storeError(err, ReasonCodeNotFound, "revoke redeem code")
	}
	if before.Status == models.CodeStatusActive {
		s.emit(ctx, events.CodeRevoked, now, events.CodeRevokedPayload{CodeID: codeID, Reason: reason})
		if s.metrics != nil {
			s.metrics.IncRevoked()
		}
	}
	return code, nil
}
