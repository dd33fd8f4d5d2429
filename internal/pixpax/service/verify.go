package service

import (
	"context"
	"encoding/json"
	"strings"

	"pixpax/internal/pixpax/domain/merkle"
	"pixpax/internal/pixpax/ledger"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/verify"
	"pixpax/internal/platform/tracer"
	"pixpax/pkg/canonical"
	dErrors "pixpax/pkg/domain-errors"
)

// VerifyPack re-derives a recorded pack from content and checks its
// signature. Verification failures are values; errors mean storage failed.
func (s *Service) VerifyPack(ctx context.Context, ref verify.Ref) (result models.VerificationResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyPack,
		tracer.String(tracer.AttrPackID, ref.PackID),
		tracer.String(tracer.AttrCollectionID, ref.CollectionID),
	)
	defer func() {
		if !result.OK {
			span.SetAttributes(tracer.String(tracer.AttrReason, result.Reason))
		}
		span.End(err)
	}()

	result, err = s.verifier.VerifyPack(ctx, ref)
	if err != nil {
		return models.VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "verify pack")
	}
	if s.metrics != nil {
		label := "ok"
		if !result.OK {
			label = result.Reason
		}
		s.metrics.IncVerification(label)
	}
	return result, nil
}

// PackProof returns the Merkle inclusion path of slot index in a recorded pack.
func (s *Service) PackProof(ctx context.Context, collectionID, version, packID string, index int) (*models.PackProof, error) {
	if strings.TrimSpace(collectionID) == "" || strings.TrimSpace(version) == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonMissingScope, "collectionId and version are required")
	}
	pack, err := s.packs.Find(ctx, collectionID, version, packID)
	if err != nil {
		return nil, storeError(err, models.ReasonPackNotFound, "pack not found")
	}
	if index < 0 || index >= len(pack.ItemHashes) || len(pack.ItemHashes) != len(pack.CardIDs) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "slot index is out of range")
	}
	steps, err := merkle.Prove(pack.ItemHashes, index)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build inclusion proof")
	}
	leaf := pack.ItemHashes[index]
	return &models.PackProof{
		PackID:   pack.PackID,
		Index:    index,
		CardID:   pack.CardIDs[index],
		ItemHash: leaf,
		PackRoot: pack.PackRoot,
		Proof:    steps,
		Valid:    merkle.VerifyProof(leaf, steps, pack.PackRoot),
	}, nil
}

// ReceiptProof proves a pack's signed entry sits in the audit ledger chain
// and that its issuer signature still verifies.
func (s *Service) ReceiptProof(ctx context.Context, segmentKey, packID string) (ledger.ReceiptProof, error) {
	if s.audit == nil {
		return ledger.ReceiptProof{}, dErrors.New(dErrors.CodeUnavailable, "audit ledger is not configured")
	}
	proof, err := s.audit.ProveReceipt(ctx, segmentKey, packID)
	if err != nil {
		return ledger.ReceiptProof{}, dErrors.Wrap(err, dErrors.CodeInternal, "prove receipt")
	}
	if !proof.OK {
		return proof, nil
	}
	if !s.entrySignatureValid(ctx, proof.Entry) {
		proof.OK = false
		proof.Reason = models.ReasonSignatureInvalid
	}
	return proof, nil
}

func (s *Service) entrySignatureValid(ctx context.Context, raw json.RawMessage) bool {
	var entry models.SignedEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Payload.IssuerKeyID == nil {
		return false
	}
	publicPEM := s.issuerPEM(ctx, *entry.Payload.IssuerKeyID)
	if publicPEM == "" {
		return false
	}
	msg, err := canonical.Marshal(entry.IssuedEntry)
	if err != nil {
		return false
	}
	sig, err := signing.DecodeSignature(entry.Signature)
	if err != nil {
		return false
	}
	return signing.VerifyPEM(publicPEM, msg, sig)
}

func (s *Service) issuerPEM(ctx context.Context, keyID string) string {
	if keyID == s.issuer.KeyID() {
		return s.issuer.PublicKeyPEM()
	}
	if s.resolver == nil {
		return ""
	}
	issuer, err := s.resolver.Resolve(ctx, keyID)
	if err != nil || issuer == nil {
		return ""
	}
	return issuer.PublicKeyPEM
}
