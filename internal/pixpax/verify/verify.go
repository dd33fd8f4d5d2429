// Package verify independently re-derives a pack's item hashes, Merkle root
// and contents commitment from the content store and checks the issuer
// signature. Stored hashes are treated as claims, never as trusted state.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"pixpax/internal/pixpax/domain/merkle"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/pkg/canonical"
	"pixpax/pkg/platform/sentinel"
)

const fetchLimit = 8

// ContentReader is the read side of the content store.
type ContentReader interface {
	GetIndex(ctx context.Context, collectionID, version string) (*models.Index, error)
	GetCard(ctx context.Context, collectionID, version, cardID string) (*models.Card, error)
}

// PackFinder looks up a recorded pack.
type PackFinder interface {
	Find(ctx context.Context, collectionID, version, packID string) (*models.Pack, error)
}

// TrustedKeySource returns keyId -> public PEM for every trusted issuer.
type TrustedKeySource interface {
	TrustedKeys() map[string]string
}

// Ref selects a pack either inline or by id within a collection version.
type Ref struct {
	PackID       string       `json:"packId,omitempty"`
	CollectionID string       `json:"collectionId,omitempty"`
	Version      string       `json:"version,omitempty"`
	Pack         *models.Pack `json:"pack,omitempty"`
}

// Verifier checks packs. It holds no mutable state and is safe for
// concurrent use.
type Verifier struct {
	content     ContentReader
	packs       PackFinder
	trusted     TrustedKeySource
	fallbackID  string
	fallbackPEM string
}

type Option func(*Verifier)

func WithPackFinder(p PackFinder) Option {
	return func(v *Verifier) {
		v.packs = p
	}
}

func WithTrustedKeys(src TrustedKeySource) Option {
	return func(v *Verifier) {
		v.trusted = src
	}
}

// WithFallbackKey trusts the current issuer key even when it is missing from
// the trusted key map.
func WithFallbackKey(publicPEM string) Option {
	return func(v *Verifier) {
		pem := signing.NormalizePublicPEM(publicPEM)
		if pem == "" {
			return
		}
		v.fallbackPEM = pem
		v.fallbackID = signing.KeyID(pem)
	}
}

func New(content ContentReader, opts ...Option) *Verifier {
	v := &Verifier{content: content}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyPack resolves ref and verifies it. Expected failures are returned as
// a result with OK false; the error is reserved for storage failures.
func (v *Verifier) VerifyPack(ctx context.Context, ref Ref) (models.VerificationResult, error) {
	if v.content == nil {
		return models.VerificationResult{}, errors.New("verifier requires a content store")
	}
	if ref.Pack != nil {
		return v.Verify(ctx, *ref.Pack)
	}
	packID := strings.TrimSpace(ref.PackID)
	if packID == "" {
		return models.Fail(models.ReasonMissingPackID, map[string]any{"message": "packId or pack is required"}), nil
	}
	collectionID, version := strings.TrimSpace(ref.CollectionID), strings.TrimSpace(ref.Version)
	if collectionID == "" || version == "" {
		return models.Fail(models.ReasonMissingPackScope, map[string]any{"message": "collectionId and version are required"}), nil
	}
	if v.packs == nil {
		return models.VerificationResult{}, errors.New("verifier has no pack log")
	}
	pack, err := v.packs.Find(ctx, collectionID, version, packID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Fail(models.ReasonPackNotFound, map[string]any{
			"packId":       packID,
			"collectionId": collectionID,
			"version":      version,
		}), nil
	}
	if err != nil {
		return models.VerificationResult{}, fmt.Errorf("load pack: %w", err)
	}
	return v.Verify(ctx, *pack)
}

// Verify checks an inline pack record.
func (v *Verifier) Verify(ctx context.Context, pack models.Pack) (models.VerificationResult, error) {
	if r, ok := checkShape(pack); !ok {
		return r, nil
	}

	index, err := v.content.GetIndex(ctx, pack.CollectionID, pack.CollectionVersion)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Fail(models.ReasonMissingIndex, map[string]any{"error": err.Error()}), nil
	}
	if err != nil {
		return models.VerificationResult{}, fmt.Errorf("load index: %w", err)
	}
	if r, ok := checkSeries(pack.CardIDs, index); !ok {
		return r, nil
	}

	recomputed, r, err := v.recomputeHashes(ctx, pack, index)
	if err != nil || r != nil {
		if r != nil {
			return *r, nil
		}
		return models.VerificationResult{}, err
	}
	for i := range pack.ItemHashes {
		if pack.ItemHashes[i] != recomputed[i] {
			return models.Fail(models.ReasonItemHashesMismatch, map[string]any{
				"index":    i,
				"expected": pack.ItemHashes[i],
				"actual":   recomputed[i],
			}), nil
		}
	}

	root := merkle.Root(recomputed)
	if root != pack.PackRoot {
		return models.Fail(models.ReasonPackRootMismatch, map[string]any{"expected": pack.PackRoot, "actual": root}), nil
	}
	commitment := merkle.ContentsCommitment(recomputed, root)
	if pack.ContentsCommitment != "" && commitment != pack.ContentsCommitment {
		return models.Fail(models.ReasonContentsCommitmentDiffer, map[string]any{
			"expected": pack.ContentsCommitment,
			"actual":   commitment,
		}), nil
	}

	var signature any = true
	if pack.Untracked {
		signature = models.SignatureSkippedUntracked
	} else if r, ok := v.checkSignature(pack, recomputed, commitment); !ok {
		return r, nil
	}

	return models.VerificationResult{
		OK:                true,
		PackID:            pack.PackID,
		CollectionID:      pack.CollectionID,
		CollectionVersion: pack.CollectionVersion,
		DropID:            pack.DropID,
		Checks: &models.VerificationChecks{
			Exists:             true,
			SeriesReference:    true,
			ItemHashes:         true,
			MerkleRoot:         true,
			ContentsCommitment: true,
			Signature:          signature,
		},
	}, nil
}

func checkShape(pack models.Pack) (models.VerificationResult, bool) {
	switch {
	case strings.TrimSpace(pack.PackID) == "":
		return models.Fail(models.ReasonMissingPackID, nil), false
	case strings.TrimSpace(pack.CollectionID) == "" || strings.TrimSpace(pack.CollectionVersion) == "":
		return models.Fail(models.ReasonMissingCollectionScope, map[string]any{
			"collectionId":      pack.CollectionID,
			"collectionVersion": pack.CollectionVersion,
		}), false
	case len(pack.CardIDs) == 0:
		return models.Fail(models.ReasonMissingCardIDs, map[string]any{"packId": pack.PackID}), false
	case len(pack.ItemHashes) == 0:
		return models.Fail(models.ReasonMissingItemHashes, map[string]any{"packId": pack.PackID}), false
	case len(pack.CardIDs) != len(pack.ItemHashes):
		return models.Fail(models.ReasonItemHashLengthMismatch, map[string]any{
			"cardCount":     len(pack.CardIDs),
			"itemHashCount": len(pack.ItemHashes),
		}), false
	case strings.TrimSpace(pack.PackRoot) == "":
		return models.Fail(models.ReasonMissingPackRoot, map[string]any{"packId": pack.PackID}), false
	}
	return models.VerificationResult{}, true
}

func checkSeries(cardIDs []string, index *models.Index) (models.VerificationResult, bool) {
	for _, cardID := range cardIDs {
		ref, ok := index.CardMap[cardID]
		if !ok {
			return models.Fail(models.ReasonCardMissingFromIndex, map[string]any{"cardId": cardID}), false
		}
		if strings.TrimSpace(ref.SeriesID) == "" {
			return models.Fail(models.ReasonCardMissingSeries, map[string]any{"cardId": cardID}), false
		}
		if !index.SeriesDeclared(ref.SeriesID) {
			return models.Fail(models.ReasonCardSeriesNotDeclared, map[string]any{
				"cardId":   cardID,
				"seriesId": ref.SeriesID,
			}), false
		}
	}
	return models.VerificationResult{}, true
}

// recomputeHashes fetches every card and hashes its current render payload.
// All hashes are computed before comparison so the report can name the first
// divergent slot.
func (v *Verifier) recomputeHashes(ctx context.Context, pack models.Pack, index *models.Index) ([]string, *models.VerificationResult, error) {
	cards := make([]*models.Card, len(pack.CardIDs))
	missing := make([]error, len(pack.CardIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, cardID := range pack.CardIDs {
		g.Go(func() error {
			card, err := v.content.GetCard(gctx, pack.CollectionID, pack.CollectionVersion, cardID)
			if errors.Is(err, sentinel.ErrNotFound) {
				missing[i] = err
				return nil
			}
			if err != nil {
				return fmt.Errorf("load card %s: %w", cardID, err)
			}
			cards[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	hashes := make([]string, len(pack.CardIDs))
	for i, cardID := range pack.CardIDs {
		if missing[i] != nil {
			r := models.Fail(models.ReasonCardContentMissing, map[string]any{"cardId": cardID, "error": missing[i].Error()})
			return nil, &r, nil
		}
		if cards[i].SeriesID == "" && index.CardMap[cardID].SeriesID == "" {
			r := models.Fail(models.ReasonCardMissingSeries, map[string]any{"cardId": cardID})
			return nil, &r, nil
		}
		hashes[i] = merkle.HashCard(pack.CollectionID, pack.CollectionVersion, cardID, cards[i].RenderPayload)
	}
	return hashes, nil, nil
}

func (v *Verifier) checkSignature(pack models.Pack, itemHashes []string, commitment string) (models.VerificationResult, bool) {
	keyID := strings.TrimSpace(pack.IssuerKeyID)
	switch {
	case keyID == "":
		return models.Fail(models.ReasonMissingIssuerKeyID, map[string]any{"packId": pack.PackID}), false
	case strings.TrimSpace(pack.IssuerSignature) == "":
		return models.Fail(models.ReasonMissingSignature, map[string]any{"packId": pack.PackID}), false
	case strings.TrimSpace(pack.IssuerAuthor) == "":
		return models.Fail(models.ReasonMissingIssuerAuthor, map[string]any{"packId": pack.PackID}), false
	}

	trusted := v.trustedKeys()
	publicPEM, ok := trusted[keyID]
	if !ok {
		ids := make([]string, 0, len(trusted))
		for id := range trusted {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return models.Fail(models.ReasonIssuerKeyNotTrusted, map[string]any{
			"issuerKeyId":   keyID,
			"trustedKeyIds": ids,
		}), false
	}

	entry := SigningEntry(pack, itemHashes, commitment)
	msg, err := canonical.Marshal(entry)
	if err != nil {
		return models.Fail(models.ReasonSignatureInvalid, map[string]any{"issuerKeyId": keyID, "error": err.Error()}), false
	}
	sig, err := signing.DecodeSignature(pack.IssuerSignature)
	if err != nil || !signing.VerifyPEM(publicPEM, msg, sig) {
		return models.Fail(models.ReasonSignatureInvalid, map[string]any{"issuerKeyId": keyID}), false
	}
	return models.VerificationResult{}, true
}

func (v *Verifier) trustedKeys() map[string]string {
	out := map[string]string{}
	if v.trusted != nil {
		for id, pem := range v.trusted.TrustedKeys() {
			out[id] = pem
		}
	}
	if v.fallbackID != "" {
		if _, ok := out[v.fallbackID]; !ok {
			out[v.fallbackID] = v.fallbackPEM
		}
	}
	return out
}

// SigningEntry rebuilds the envelope an issuer signs for pack, substituting
// the given item hashes and commitment.
func SigningEntry(pack models.Pack, itemHashes []string, commitment string) models.IssuedEntry {
	keyID, author := pack.IssuerKeyID, pack.IssuerAuthor
	return models.IssuedEntry{
		Kind:      models.EntryKindPackIssued,
		Timestamp: pack.IssuedAt,
		Author:    pack.IssuerAuthor,
		Payload: models.IssuedPayload{
			Type:               models.EntryKindPackIssued,
			PackModel:          packModel(pack.PackModel),
			PackID:             pack.PackID,
			IssuedAt:           pack.IssuedAt,
			IssuerKeyID:        &keyID,
			IssuedBy:           &author,
			IssuedTo:           pack.IssuedTo,
			DropID:             pack.DropID,
			CollectionID:       pack.CollectionID,
			CollectionVersion:  pack.CollectionVersion,
			CardIDs:            pack.CardIDs,
			Count:              len(pack.CardIDs),
			PackRoot:           pack.PackRoot,
			ItemHashes:         itemHashes,
			ContentsCommitment: commitment,
		},
	}
}

func packModel(m string) string {
	if m == "" {
		return models.PackModelAlbum
	}
	return m
}
