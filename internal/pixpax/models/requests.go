package models

import "time"

// IssueRequest asks for one pack from a collection version.
type IssueRequest struct {
	CollectionID string
	Version      string
	UserKey      string
	DropID       string
	Count        *int
	Override     bool
	DevUntracked bool
	// IsAdmin is set by the transport after checking the admin token.
	IsAdmin bool
}

// MintRequest describes a redeem code to mint.
type MintRequest struct {
	CollectionID string
	Version      string
	Kind         CodeKind
	CardID       string
	DropID       string
	Count        *int
	TTL          time.Duration
}

// RedeemRequest presents a token together with the collector's key and an
// optional proof signature over the token hash.
type RedeemRequest struct {
	Token           string
	CollectorPubKey string
	CollectorSig    string
}

// SeedRequest publishes a collection version.
type SeedRequest struct {
	Collection Collection `json:"collection"`
	Index      Index      `json:"index"`
	Cards      []Card     `json:"cards"`
}

// SeedResult reports which documents were newly written.
type SeedResult struct {
	CollectionID      string `json:"collectionId"`
	Version           string `json:"version"`
	CollectionCreated bool   `json:"collectionCreated"`
	IndexCreated      bool   `json:"indexCreated"`
	CardsCreated      int    `json:"cardsCreated"`
	CardsExisting     int    `json:"cardsExisting"`
}

// RetireResult reports a series retirement.
type RetireResult struct {
	CollectionID string    `json:"collectionId"`
	Version      string    `json:"version"`
	SeriesID     string    `json:"seriesId"`
	RetiredAt    time.Time `json:"retiredAt"`
	Created      bool      `json:"created"`
}

// PackProof is the Merkle inclusion path of one slot of a recorded pack.
type PackProof struct {
	PackID   string      `json:"packId"`
	Index    int         `json:"index"`
	CardID   string      `json:"cardId"`
	ItemHash string      `json:"itemHash"`
	PackRoot string      `json:"packRoot"`
	Proof    []ProofStep `json:"proof"`
	Valid    bool        `json:"valid"`
}
