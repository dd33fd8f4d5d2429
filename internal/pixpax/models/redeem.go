package models

import (
	"encoding/json"
	"time"
)

// CodeKind is what a redeem code grants.
type CodeKind string

const (
	CodeKindPack      CodeKind = "pack"
	CodeKindFixedCard CodeKind = "fixed-card"
)

// ParseCodeKind validates a kind string.
func ParseCodeKind(s string) (CodeKind, bool) {
	switch CodeKind(s) {
	case CodeKindPack, CodeKindFixedCard:
		return CodeKind(s), true
	}
	return "", false
}

// CodeStatus is the lifecycle state of a redeem code. Claimed and revoked
// are terminal.
type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusClaimed CodeStatus = "claimed"
	CodeStatusRevoked CodeStatus = "revoked"
)

// CodePolicy is the context bound into a token's "c" field via its hash.
type CodePolicy struct {
	CodeID       string   `json:"codeId"`
	CollectionID string   `json:"collectionId"`
	Version      string   `json:"version"`
	Kind         CodeKind `json:"kind"`
	CardID       string   `json:"cardId,omitempty"`
	DropID       string   `json:"dropId,omitempty"`
	Count        int      `json:"count,omitempty"`
}

// CodeClaim is stored on a code when it transitions to claimed.
type CodeClaim struct {
	PackID          string          `json:"packId"`
	CollectorPubKey string          `json:"collectorPubKey"`
	ClaimedAt       time.Time       `json:"claimedAt"`
	Response        json.RawMessage `json:"response,omitempty"`
}

// RedeemCode is a one-time code bound to a signed v3 token.
type RedeemCode struct {
	CodeID        string     `json:"codeId"`
	TokenHash     string     `json:"tokenHash"`
	PolicyHash    string     `json:"policyHash"`
	CollectionID  string     `json:"collectionId"`
	Version       string     `json:"version"`
	Kind          CodeKind   `json:"kind"`
	CardID        string     `json:"cardId,omitempty"`
	DropID        string     `json:"dropId,omitempty"`
	Count         int        `json:"count,omitempty"`
	Status        CodeStatus `json:"status"`
	MintRef       string     `json:"mintRef"`
	IssuerKeyID   string     `json:"issuerKeyId"`
	IssuedAt      time.Time  `json:"issuedAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"`
	RevokedReason string     `json:"revokedReason,omitempty"`
	Claim         *CodeClaim `json:"claim,omitempty"`
}

// Policy returns the context hashed into the token.
func (c RedeemCode) Policy() CodePolicy {
	return CodePolicy{
		CodeID:       c.CodeID,
		CollectionID: c.CollectionID,
		Version:      c.Version,
		Kind:         c.Kind,
		CardID:       c.CardID,
		DropID:       c.DropID,
		Count:        c.Count,
	}
}

// MintResult is returned when a redeem code is minted.
type MintResult struct {
	Token     string    `json:"token"`
	TokenHash string    `json:"tokenHash"`
	CodeID    string    `json:"codeId"`
	MintRef   string    `json:"mintRef"`
	RedeemURL string    `json:"redeemUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReceiptPayload is the exact v1 receipt field set.
type ReceiptPayload struct {
	V               int    `json:"v"`
	ReceiptKeyID    string `json:"receiptKeyId"`
	TokenHash       string `json:"tokenHash"`
	IssuerKeyID     string `json:"issuerKeyId"`
	CollectorPubKey string `json:"collectorPubKey"`
	MintRef         string `json:"mintRef"`
	ServerTime      int64  `json:"serverTime"`
	CollectionID    string `json:"collectionId"`
	Version         string `json:"version"`
	Kind            string `json:"kind"`
	CodeID          string `json:"codeId"`
}

// SignedReceipt carries the canonical payload bytes and signature, both base64url.
type SignedReceipt struct {
	Payload    ReceiptPayload `json:"payload"`
	PayloadB64 string         `json:"payloadB64"`
	Signature  string         `json:"signature"`
}

// ClaimedConflict is returned when a code was already claimed. It carries
// the first claimant's metadata.
type ClaimedConflict struct {
	Status    string    `json:"status"`
	CodeID    string    `json:"codeId"`
	MintRef   string    `json:"mintRef"`
	PackID    string    `json:"packId"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// StatusAlreadyClaimed is the conflict status string.
const StatusAlreadyClaimed = "already-claimed"

// RedeemResult is either a fresh pack or a conflict. A token that fails
// verification yields Reason with neither set.
type RedeemResult struct {
	Pack     *PackResult      `json:"pack,omitempty"`
	Conflict *ClaimedConflict `json:"conflict,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}
