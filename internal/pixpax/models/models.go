package models

import (
	"encoding/json"
	"time"
)

// PackModelAlbum is the only pack model issued today.
const PackModelAlbum = "album"

// EntryKindPackIssued is the kind of the signed issuance entry.
const EntryKindPackIssued = "pack.issued"

// RenderPayload is the hashed content of a card.
type RenderPayload struct {
	GridSize int             `json:"gridSize"`
	GridB64  string          `json:"gridB64"`
	Palette  json.RawMessage `json:"palette,omitempty"`
}

// Card is an immutable catalog item. Only RenderPayload contributes to the
// card hash; Label and Description are display metadata.
type Card struct {
	CollectionID  string        `json:"collectionId"`
	Version       string        `json:"version"`
	CardID        string        `json:"cardId"`
	SeriesID      string        `json:"seriesId"`
	SlotIndex     int           `json:"slotIndex"`
	Role          string        `json:"role,omitempty"`
	Label         string        `json:"label,omitempty"`
	Description   string        `json:"description,omitempty"`
	RenderPayload RenderPayload `json:"renderPayload"`
}

// Collection is the top-level catalog document for one version.
type Collection struct {
	CollectionID string    `json:"collectionId"`
	Version      string    `json:"version"`
	Name         string    `json:"name"`
	GridSize     int       `json:"gridSize"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Series groups cards in the published index.
type Series struct {
	SeriesID string `json:"seriesId"`
	Name     string `json:"name,omitempty"`
}

// CardRef maps a card id to its series in the index.
type CardRef struct {
	SeriesID  string `json:"seriesId"`
	SlotIndex int    `json:"slotIndex"`
	Role      string `json:"role,omitempty"`
}

// Index is the published series and card membership of a collection version.
type Index struct {
	CollectionID string             `json:"collectionId"`
	Version      string             `json:"version"`
	Series       []Series           `json:"series"`
	Cards        []string           `json:"cards"`
	CardMap      map[string]CardRef `json:"cardMap"`
}

// SeriesDeclared reports whether seriesID is listed. An index with no
// declared series accepts any series.
func (i Index) SeriesDeclared(seriesID string) bool {
	if len(i.Series) == 0 {
		return true
	}
	for _, s := range i.Series {
		if s.SeriesID == seriesID {
			return true
		}
	}
	return false
}

// IssuedPayload is the signed body of a pack.issued entry. It never carries
// card labels or descriptions.
type IssuedPayload struct {
	Type               string   `json:"type"`
	PackModel          string   `json:"packModel"`
	PackID             string   `json:"packId"`
	IssuedAt           string   `json:"issuedAt"`
	IssuerKeyID        *string  `json:"issuerKeyId"`
	IssuedBy           *string  `json:"issuedBy"`
	IssuedTo           string   `json:"issuedTo"`
	DropID             string   `json:"dropId"`
	CollectionID       string   `json:"collectionId"`
	CollectionVersion  string   `json:"collectionVersion"`
	CardIDs            []string `json:"cardIds"`
	Count              int      `json:"count"`
	PackRoot           string   `json:"packRoot"`
	ItemHashes         []string `json:"itemHashes"`
	ContentsCommitment string   `json:"contentsCommitment"`
}

// IssuedEntry is the signing envelope for a pack.issued record.
type IssuedEntry struct {
	Kind      string        `json:"kind"`
	Timestamp string        `json:"timestamp"`
	Author    string        `json:"author"`
	Payload   IssuedPayload `json:"payload"`
}

// Pack is the stored record of an issued pack.
type Pack struct {
	PackID             string   `json:"packId"`
	PackModel          string   `json:"packModel"`
	CollectionID       string   `json:"collectionId"`
	CollectionVersion  string   `json:"collectionVersion"`
	DropID             string   `json:"dropId"`
	IssuedTo           string   `json:"issuedTo"`
	IssuedAt           string   `json:"issuedAt"`
	CardIDs            []string `json:"cardIds"`
	ItemHashes         []string `json:"itemHashes"`
	PackRoot           string   `json:"packRoot"`
	ContentsCommitment string   `json:"contentsCommitment"`
	IssuerKeyID        string   `json:"issuerKeyId,omitempty"`
	IssuerSignature    string   `json:"issuerSignature,omitempty"`
	IssuerAuthor       string   `json:"issuerAuthor,omitempty"`
	Untracked          bool     `json:"untracked,omitempty"`
}

// IssuanceMode names the policy a pack was issued under.
type IssuanceMode string

const (
	ModeWeekly       IssuanceMode = "weekly"
	ModeOverride     IssuanceMode = "override"
	ModeDevUntracked IssuanceMode = "dev-untracked"
	ModeRedeem       IssuanceMode = "redeem"
)

// IssuanceInfo describes how a result was produced.
type IssuanceInfo struct {
	Mode     IssuanceMode `json:"mode"`
	Reused   bool         `json:"reused"`
	Override bool         `json:"override"`
	DropID   string       `json:"dropId"`
}

// IssuedCard is a drawn card as returned to the caller.
type IssuedCard struct {
	CardID        string        `json:"cardId"`
	SeriesID      string        `json:"seriesId"`
	SlotIndex     int           `json:"slotIndex"`
	Role          string        `json:"role,omitempty"`
	Label         string        `json:"label,omitempty"`
	RenderPayload RenderPayload `json:"renderPayload"`
	ItemHash      string        `json:"itemHash"`
}

// AuditRef points at the audit segment holding a pack's receipt.
type AuditRef struct {
	SegmentKey  string `json:"segmentKey,omitempty"`
	SegmentHash string `json:"segmentHash,omitempty"`
	Queued      bool   `json:"queued,omitempty"`
}

// PackResult is returned by issuance and redemption.
type PackResult struct {
	PackID             string         `json:"packId"`
	CollectionID       string         `json:"collectionId"`
	CollectionVersion  string         `json:"collectionVersion"`
	IssuedTo           string         `json:"issuedTo"`
	IssuedAt           string         `json:"issuedAt"`
	Cards              []IssuedCard   `json:"cards"`
	ItemHashes         []string       `json:"itemHashes"`
	PackRoot           string         `json:"packRoot"`
	ContentsCommitment string         `json:"contentsCommitment"`
	Issuance           IssuanceInfo   `json:"issuance"`
	Untracked          bool           `json:"untracked,omitempty"`
	Entry              *SignedEntry   `json:"entry,omitempty"`
	Audit              *AuditRef      `json:"audit,omitempty"`
	Receipt            *SignedReceipt `json:"receipt,omitempty"`
}

// SignedEntry is the issuance entry plus its signature.
type SignedEntry struct {
	IssuedEntry
	Signature string `json:"signature"`
}

// IssuanceClaim records the one weekly pack allowed per user and drop.
type IssuanceClaim struct {
	CollectionID string          `json:"collectionId"`
	Version      string          `json:"version"`
	DropID       string          `json:"dropId"`
	IssuedTo     string          `json:"issuedTo"`
	CreatedAt    time.Time       `json:"createdAt"`
	Response     json.RawMessage `json:"response"`
}

// ClaimKey is the idempotency key of an IssuanceClaim.
type ClaimKey struct {
	CollectionID string
	Version      string
	DropID       string
	IssuedTo     string
}

// String renders the key as a single storage key.
func (k ClaimKey) String() string {
	return k.CollectionID + "/" + k.Version + "/" + k.DropID + "/" + k.IssuedTo
}

// Key returns the claim's idempotency key.
func (c IssuanceClaim) Key() ClaimKey {
	return ClaimKey{CollectionID: c.CollectionID, Version: c.Version, DropID: c.DropID, IssuedTo: c.IssuedTo}
}

// RetiredSeries marks a series as excluded from future draws.
type RetiredSeries struct {
	SeriesID  string    `json:"seriesId"`
	RetiredAt time.Time `json:"retiredAt"`
	Reason    string    `json:"reason,omitempty"`
}
