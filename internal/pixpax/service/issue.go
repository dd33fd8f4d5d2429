package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pixpax/internal/pixpax/domain/merkle"
	"pixpax/internal/pixpax/domain/policy"
	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/rng"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/verify"
	"pixpax/internal/platform/tracer"
	"pixpax/pkg/canonical"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/middleware/requesttime"
)

// isoMillis matches the millisecond ISO-8601 timestamps on issued entries.
const isoMillis = "2006-01-02T15:04:05.000Z"

// IssuePack resolves the issuance policy and, unless a weekly claim already
// exists, draws, hashes, signs and records a new pack.
func (s *Service) IssuePack(ctx context.Context, req models.IssueRequest) (result *models.PackResult, err error) {
	collectionID, version := strings.TrimSpace(req.CollectionID), strings.TrimSpace(req.Version)
	if collectionID == "" || version == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonMissingScope, "collectionId and version are required")
	}
	userKey := CanonicalUserKey(req.UserKey)
	if userKey == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonMissingUserKey, "userKey is required")
	}

	now := requesttime.Now(ctx).UTC()
	decision, err := policy.Resolve(policy.Params{
		WantsOverride:     req.Override,
		WantsDevUntracked: req.DevUntracked,
		AllowDevUntracked: s.allowDevUntracked,
		RequestedDropID:   req.DropID,
		RequestedCount:    req.Count,
		DefaultPackCount:  s.defaultPackCount,
		Now:               now,
	}, s.claims)
	if err != nil {
		return nil, policyError(err)
	}
	if decision.RequiresAdmin && !req.IsAdmin {
		return nil, dErrors.NewReason(dErrors.CodeForbidden, ReasonAdminRequired, "override issuance requires an admin token")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanIssuePack,
		tracer.String(tracer.AttrCollectionID, collectionID),
		tracer.String(tracer.AttrVersion, version),
		tracer.String(tracer.AttrDropID, decision.DropID),
		tracer.String(tracer.AttrMode, string(decision.Mode)),
	)
	defer func() { span.End(err) }()
	start := time.Now()

	issuedTo := HashIssuedTo(userKey)
	key := models.ClaimKey{CollectionID: collectionID, Version: version, DropID: decision.DropID, IssuedTo: issuedTo}
	reused, err := decision.Policy.TryReuse(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read issuance claim")
	}
	if reused != nil {
		span.AddEvent(tracer.EventClaimReplayed)
		span.SetAttributes(tracer.Bool(tracer.AttrReused, true))
		s.incReused(decision.Mode)
		return reused, nil
	}

	cardIDs, err := s.drawCards(ctx, collectionID, version, decision.DropID, decision.Count)
	if err != nil {
		return nil, err
	}
	cards, err := s.loadCards(ctx, collectionID, version, cardIDs)
	if err != nil {
		return nil, err
	}
	built, err := s.buildPack(collectionID, version, decision.DropID, issuedTo, now, cards, decision.Untracked)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrPackID, built.pack.PackID), tracer.Int(tracer.AttrCount, len(cards)))

	result = built.result(models.IssuanceInfo{
		Mode:     decision.Mode,
		Override: decision.Override,
		DropID:   decision.DropID,
	})
	if err := s.recordPack(ctx, built.pack); err != nil {
		return nil, err
	}
	if !decision.Untracked {
		result.Audit = s.appendAudit(ctx, built)
	}

	winner, err := decision.Policy.Finalize(ctx, key, result)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "finalize issuance claim")
	}
	if winner != nil {
		s.logger.InfoContext(ctx, "weekly claim lost race, replaying winner",
			"pack_id", built.pack.PackID,
			"winner_pack_id", winner.PackID,
			"drop_id", decision.DropID,
		)
		s.incReused(decision.Mode)
		return winner, nil
	}

	s.emit(ctx, events.PackIssued, now, events.PackIssuedPayload{
		PackID:       built.pack.PackID,
		CollectionID: collectionID,
		Version:      version,
		IssuedTo:     issuedTo,
		DropID:       decision.DropID,
		Mode:         string(decision.Mode),
		Count:        len(cards),
		PackRoot:     built.pack.PackRoot,
		Untracked:    decision.Untracked,
		SegmentKey:   segmentKeyOf(result.Audit),
	})
	if s.metrics != nil {
		s.metrics.IncIssued(string(decision.Mode))
		s.metrics.ObserveIssue(string(decision.Mode), time.Since(start).Seconds())
	}
	return result, nil
}

// drawCards picks count cards with replacement from the non-retired pool.
func (s *Service) drawCards(ctx context.Context, collectionID, version, dropID string, count int) ([]string, error) {
	index, err := s.content.GetIndex(ctx, collectionID, version)
	if err != nil {
		return nil, storeError(err, ReasonContentMissing, "load collection index")
	}
	if len(index.Cards) == 0 {
		return nil, dErrors.NewReason(dErrors.CodePolicyViolation, ReasonIndexHasNoCards, "collection index has no cards")
	}
	retired, err := s.content.RetiredSeries(ctx, collectionID, version)
	if err != nil {
		return nil, storeError(err, ReasonContentMissing, "load retired series")
	}
	excluded := make(map[string]bool, len(retired))
	for _, id := range retired {
		excluded[id] = true
	}
	pool := make([]string, 0, len(index.Cards))
	for _, cardID := range index.Cards {
		if seriesID := index.CardMap[cardID].SeriesID; seriesID == "" || !excluded[seriesID] {
			pool = append(pool, cardID)
		}
	}
	if len(pool) == 0 {
		return nil, dErrors.NewReason(dErrors.CodePolicyViolation, ReasonAllSeriesRetired, "all series are retired for this collection version")
	}

	drawn := make([]string, count)
	for slot := range drawn {
		i, err := s.rng.NextInt(len(pool), rng.SlotContext{
			CollectionID: collectionID,
			Version:      version,
			DropID:       dropID,
			SlotIndex:    slot,
			Count:        count,
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "draw card")
		}
		drawn[slot] = pool[i]
	}
	return drawn, nil
}

// loadCards fetches card content concurrently, keeping draw order.
func (s *Service) loadCards(ctx context.Context, collectionID, version string, cardIDs []string) ([]models.IssuedCard, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDrawCards, tracer.Int(tracer.AttrCount, len(cardIDs)))
	cards := make([]models.IssuedCard, len(cardIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, cardID := range cardIDs {
		g.Go(func() error {
			card, err := s.content.GetCard(gctx, collectionID, version, cardID)
			if err != nil {
				return fmt.Errorf("card %s: %w", cardID, err)
			}
			cards[i] = models.IssuedCard{
				CardID:        cardID,
				SeriesID:      card.SeriesID,
				SlotIndex:     card.SlotIndex,
				Role:          card.Role,
				Label:         card.Label,
				RenderPayload: card.RenderPayload,
				ItemHash:      merkle.HashCard(collectionID, version, cardID, card.RenderPayload),
			}
			return nil
		})
	}
	err := g.Wait()
	span.End(err)
	if err != nil {
		return nil, storeError(err, ReasonContentMissing, "load card content")
	}
	return cards, nil
}

type builtPack struct {
	pack  models.Pack
	entry *models.SignedEntry
	cards []models.IssuedCard
}

// buildPack commits to the drawn cards and signs the issuance entry. All
// hashing and signing happens here, before anything is written.
func (s *Service) buildPack(collectionID, version, dropID, issuedTo string, now time.Time, cards []models.IssuedCard, untracked bool) (*builtPack, error) {
	packID, err := newPackID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate pack id")
	}
	cardIDs := make([]string, len(cards))
	hashes := make([]string, len(cards))
	for i, c := range cards {
		cardIDs[i] = c.CardID
		hashes[i] = c.ItemHash
	}
	root := merkle.Root(hashes)
	pack := models.Pack{
		PackID:             packID,
		PackModel:          models.PackModelAlbum,
		CollectionID:       collectionID,
		CollectionVersion:  version,
		DropID:             dropID,
		IssuedTo:           issuedTo,
		IssuedAt:           now.Format(isoMillis),
		CardIDs:            cardIDs,
		ItemHashes:         hashes,
		PackRoot:           root,
		ContentsCommitment: merkle.ContentsCommitment(hashes, root),
		Untracked:          untracked,
	}

	if untracked {
		author := untrackedAuthor
		entry := verify.SigningEntry(pack, hashes, pack.ContentsCommitment)
		entry.Author = author
		entry.Payload.IssuerKeyID = nil
		entry.Payload.IssuedBy = &author
		return &builtPack{pack: pack, entry: &models.SignedEntry{IssuedEntry: entry}, cards: cards}, nil
	}

	pack.IssuerKeyID = s.issuer.KeyID()
	pack.IssuerAuthor = s.author
	entry := verify.SigningEntry(pack, hashes, pack.ContentsCommitment)
	msg, err := canonical.Marshal(entry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode issuance entry")
	}
	sig, err := s.issuer.Sign(msg)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign issuance entry")
	}
	pack.IssuerSignature = signing.EncodeB64URL(sig)
	return &builtPack{
		pack:  pack,
		entry: &models.SignedEntry{IssuedEntry: entry, Signature: pack.IssuerSignature},
		cards: cards,
	}, nil
}

func (b *builtPack) result(info models.IssuanceInfo) *models.PackResult {
	return &models.PackResult{
		PackID:             b.pack.PackID,
		CollectionID:       b.pack.CollectionID,
		CollectionVersion:  b.pack.CollectionVersion,
		IssuedTo:           b.pack.IssuedTo,
		IssuedAt:           b.pack.IssuedAt,
		Cards:              b.cards,
		ItemHashes:         b.pack.ItemHashes,
		PackRoot:           b.pack.PackRoot,
		ContentsCommitment: b.pack.ContentsCommitment,
		Issuance:           info,
		Untracked:          b.pack.Untracked,
		Entry:              b.entry,
	}
}

func (s *Service) recordPack(ctx context.Context, pack models.Pack) error {
	if err := s.packs.Append(ctx, pack); err != nil {
		return storeError(err, "", "record pack")
	}
	return nil
}

// appendAudit writes the signed entry to the audit ledger. The pack is
// already durable in the pack log, so a ledger failure is logged and the
// issuance still succeeds.
func (s *Service) appendAudit(ctx context.Context, b *builtPack) *models.AuditRef {
	if s.audit == nil {
		return nil
	}
	ref, err := s.audit.AppendReceipt(ctx, b.pack.PackID, b.entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit ledger append failed",
			"pack_id", b.pack.PackID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncLedgerAppendError()
		}
		return nil
	}
	return ref
}

func (s *Service) emit(ctx context.Context, typ events.Type, at time.Time, payload any) {
	if s.events == nil {
		return
	}
	e, err := events.New(typ, at, payload)
	if err == nil {
		err = s.events.Emit(ctx, e)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit event", "event_type", typ, "error", err)
		if s.metrics != nil {
			s.metrics.IncEventEmitError(string(typ))
		}
	}
}

func (s *Service) incReused(mode models.IssuanceMode) {
	if s.metrics != nil {
		s.metrics.IncReused(string(mode))
	}
}

func segmentKeyOf(ref *models.AuditRef) string {
	if ref == nil {
		return ""
	}
	return ref.SegmentKey
}

// CanonicalUserKey lowercases and trims key and scopes bare keys as "user:".
func CanonicalUserKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" || strings.Contains(k, ":") {
		return k
	}
	return "user:" + k
}

// HashIssuedTo derives the pseudonymous issuedTo value of a canonical user key.
func HashIssuedTo(canonicalKey string) string {
	return canonical.SHA256Hex([]byte("pixpax:user:" + canonicalKey))
}

func newPackID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
