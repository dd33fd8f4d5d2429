package events

import (
	"context"

	"pixpax/pkg/platform/privacy"
	"pixpax/pkg/requestcontext"
)

// Client is the anonymized request origin attached to redemption events.
type Client struct {
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
	DeviceName        string `json:"deviceName,omitempty"`
	IPPrefix          string `json:"ipPrefix,omitempty"`
}

// ClientFromContext reads the middleware-populated request metadata. The IP
// is truncated before it leaves this function.
func ClientFromContext(ctx context.Context) *Client {
	c := Client{
		DeviceFingerprint: requestcontext.DeviceFingerprint(ctx),
		DeviceName:        requestcontext.DeviceName(ctx),
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		c.IPPrefix = privacy.IPPrefix(ip)
	}
	if c == (Client{}) {
		return nil
	}
	return &c
}

type CollectionCreatedPayload struct {
	CollectionID string `json:"collectionId"`
	Version      string `json:"version"`
	Name         string `json:"name,omitempty"`
	CardCount    int    `json:"cardCount"`
	SeriesCount  int    `json:"seriesCount"`
}

type SeriesRetiredPayload struct {
	CollectionID string `json:"collectionId"`
	Version      string `json:"version"`
	SeriesID     string `json:"seriesId"`
	Reason       string `json:"reason,omitempty"`
}

type PackIssuedPayload struct {
	PackID       string `json:"packId"`
	CollectionID string `json:"collectionId"`
	Version      string `json:"version"`
	IssuedTo     string `json:"issuedTo"`
	DropID       string `json:"dropId"`
	Mode         string `json:"mode"`
	Count        int    `json:"count"`
	PackRoot     string `json:"packRoot"`
	Untracked    bool   `json:"untracked,omitempty"`
	SegmentKey   string `json:"segmentKey,omitempty"`
}

type PackClaimedPayload struct {
	PackID       string  `json:"packId"`
	CodeID       string  `json:"codeId"`
	CollectionID string  `json:"collectionId"`
	Version      string  `json:"version"`
	Client       *Client `json:"client,omitempty"`
}

type CodeMintedPayload struct {
	CodeID       string `json:"codeId"`
	CollectionID string `json:"collectionId"`
	Version      string `json:"version"`
	Kind         string `json:"kind"`
	MintRef      string `json:"mintRef"`
	IssuerKeyID  string `json:"issuerKeyId"`
	ExpiresAt    string `json:"expiresAt"`
}

type CodeRedeemedPayload struct {
	CodeID    string  `json:"codeId"`
	PackID    string  `json:"packId"`
	TokenHash string  `json:"tokenHash"`
	MintRef   string  `json:"mintRef"`
	Client    *Client `json:"client,omitempty"`
}

type CodeRevokedPayload struct {
	CodeID string `json:"codeId"`
	Reason string `json:"reason"`
}
