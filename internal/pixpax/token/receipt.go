package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/pkg/canonical"
)

// ReceiptVersion is the receipt payload version.
const ReceiptVersion = 1

// ErrInvalidReceiptPayload is returned for receipts outside the v1 field set.
var ErrInvalidReceiptPayload = errors.New("invalid receipt payload")

var receiptFields = []string{
	"v", "receiptKeyId", "tokenHash", "issuerKeyId", "collectorPubKey", "mintRef",
	"serverTime", "collectionId", "version", "kind", "codeId",
}

// SignReceiptV1 validates and signs a receipt.
func SignReceiptV1(payload models.ReceiptPayload, signer *signing.Signer) (*models.SignedReceipt, error) {
	if err := validateReceipt(payload); err != nil {
		return nil, err
	}
	payloadBytes, err := canonical.Marshal(payload)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(payloadBytes)
	if err != nil {
		return nil, err
	}
	return &models.SignedReceipt{
		Payload:    payload,
		PayloadB64: signing.EncodeB64URL(payloadBytes),
		Signature:  signing.EncodeB64URL(sig),
	}, nil
}

// VerifyReceiptV1 checks a receipt signature against publicPEM. An invalid
// payload is an error; a bad signature is false.
func VerifyReceiptV1(payload models.ReceiptPayload, signature, publicPEM string) (bool, error) {
	if err := validateReceipt(payload); err != nil {
		return false, err
	}
	payloadBytes, err := canonical.Marshal(payload)
	if err != nil {
		return false, err
	}
	sig, err := signing.DecodeSignature(signature)
	if err != nil {
		return false, nil
	}
	return signing.VerifyPEM(publicPEM, payloadBytes, sig), nil
}

// ParseReceiptV1 decodes a receipt payload, rejecting unknown fields.
func ParseReceiptV1(raw []byte) (models.ReceiptPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.ReceiptPayload{}, fmt.Errorf("%w: payload must be an object", ErrInvalidReceiptPayload)
	}
	for key := range fields {
		if !slices.Contains(receiptFields, key) {
			return models.ReceiptPayload{}, fmt.Errorf("%w: unsupported field: %s", ErrInvalidReceiptPayload, key)
		}
	}
	var p models.ReceiptPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.ReceiptPayload{}, fmt.Errorf("%w: %v", ErrInvalidReceiptPayload, err)
	}
	if err := validateReceipt(p); err != nil {
		return models.ReceiptPayload{}, err
	}
	return p, nil
}

func validateReceipt(p models.ReceiptPayload) error {
	if p.V != ReceiptVersion {
		return fmt.Errorf("%w: v must be 1", ErrInvalidReceiptPayload)
	}
	required := map[string]string{
		"receiptKeyId":    p.ReceiptKeyID,
		"tokenHash":       p.TokenHash,
		"issuerKeyId":     p.IssuerKeyID,
		"collectorPubKey": p.CollectorPubKey,
		"mintRef":         p.MintRef,
		"collectionId":    p.CollectionID,
		"version":         p.Version,
		"kind":            p.Kind,
		"codeId":          p.CodeID,
	}
	for _, name := range receiptFields {
		if value, ok := required[name]; ok && strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidReceiptPayload, name)
		}
	}
	if p.ServerTime < 1 {
		return fmt.Errorf("%w: serverTime must be epoch seconds", ErrInvalidReceiptPayload)
	}
	return nil
}
