// Package token signs and verifies v3 redeem tokens and v1 redemption receipts.
//
// Both artifacts are signed over their canonical JSON bytes. A token travels
// as base64url(payload) "." base64url(raw signature); its hash (SHA-256 of
// the payload bytes) is the idempotency key of the redeem code it belongs to.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"pixpax/internal/pixpax/issuers"
	"pixpax/internal/pixpax/signing"
	"pixpax/pkg/canonical"
)

// VersionV3 is the only accepted token version.
const VersionV3 = 3

// DefaultExpLeeway is applied when no leeway is configured.
const DefaultExpLeeway = 60 * time.Second

// Verification failure reasons.
const (
	ReasonInvalidFormat     = "invalid-token-format"
	ReasonInvalidPayload    = "invalid-token-payload"
	ReasonLegacyUnsupported = "legacy-token-unsupported"
	ReasonNonCanonicalBytes = "non-canonical-payload-bytes"
	ReasonResolutionFailed  = "issuer-resolution-failed"
	ReasonIssuerNotActive   = "issuer-not-active"
	ReasonSignatureInvalid  = "signature-invalid"
	ReasonExpired           = "token-expired"
)

// ErrInvalidTokenPayload is returned when signing a payload that is not
// exactly {v:3, k, c, e}.
var ErrInvalidTokenPayload = errors.New("invalid token payload")

var v3Fields = []string{"v", "k", "c", "e"}

// PayloadV3 is the exact v3 field set.
type PayloadV3 struct {
	V int    `json:"v"`
	K string `json:"k"`
	C string `json:"c"`
	E int64  `json:"e"`
}

// Signed is a freshly signed token.
type Signed struct {
	Token        string
	Payload      PayloadV3
	PayloadBytes []byte
	Signature    []byte
	TokenHash    string
}

// SignV3 validates payload and signs its canonical bytes.
func SignV3(payload PayloadV3, signer *signing.Signer) (*Signed, error) {
	if err := validateV3(payload); err != nil {
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
	return &Signed{
		Token:        signing.EncodeB64URL(payloadBytes) + "." + signing.EncodeB64URL(sig),
		Payload:      payload,
		PayloadBytes: payloadBytes,
		Signature:    sig,
		TokenHash:    HashPayloadBytes(payloadBytes),
	}, nil
}

// SignV3JSON signs a payload given as JSON, rejecting extra or missing fields.
func SignV3JSON(raw []byte, signer *signing.Signer) (*Signed, error) {
	payload, err := parseStrictV3(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenPayload, err)
	}
	return SignV3(payload, signer)
}

// Result is the outcome of VerifyV3. Failures are values with OK false.
type Result struct {
	OK           bool
	Reason       string
	Detail       string
	Payload      PayloadV3
	PayloadBytes []byte
	Signature    []byte
	Issuer       *issuers.Issuer
	TokenHash    string
}

func fail(reason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

// Verifier checks v3 tokens against an issuer resolver.
type Verifier struct {
	resolver issuers.Resolver
	leeway   time.Duration
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithExpLeeway overrides the expiry leeway. Negative values clamp to zero.
func WithExpLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.leeway = max(d, 0)
	}
}

// NewVerifier builds a Verifier.
func NewVerifier(resolver issuers.Resolver, opts ...VerifierOption) *Verifier {
	v := &Verifier{resolver: resolver, leeway: DefaultExpLeeway}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the checks in order: shape, version, strict fields, canonical
// bytes, issuer status, signature, expiry.
func (v *Verifier) Verify(ctx context.Context, tokenString string, now time.Time) Result {
	parts := strings.Split(strings.TrimSpace(tokenString), ".")
	if len(parts) != 2 {
		return fail(ReasonInvalidFormat, "")
	}
	payloadBytes, err := signing.DecodeB64URL(parts[0])
	if err != nil {
		return fail(ReasonInvalidPayload, "payload is not base64url")
	}
	sig, err := signing.DecodeB64URL(parts[1])
	if err != nil {
		return fail(ReasonInvalidPayload, "signature is not base64url")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payloadBytes, &fields); err != nil {
		return fail(ReasonInvalidPayload, "payload is not a JSON object")
	}
	if version, ok := numberField(fields["v"]); !ok || version != VersionV3 {
		return fail(ReasonLegacyUnsupported, "")
	}
	payload, err := parseStrictV3(payloadBytes)
	if err != nil {
		return fail(ReasonInvalidPayload, err.Error())
	}
	if !canonical.Equal(payloadBytes) {
		return fail(ReasonNonCanonicalBytes, "")
	}

	if v.resolver == nil {
		return fail(ReasonResolutionFailed, "no issuer resolver configured")
	}
	issuer, err := v.resolver.Resolve(ctx, payload.K)
	if err != nil {
		return fail(ReasonResolutionFailed, err.Error())
	}
	if issuer == nil || issuer.Status != issuers.StatusActive || issuer.PublicKeyPEM == "" {
		return fail(ReasonIssuerNotActive, payload.K)
	}
	if !signing.VerifyPEM(issuer.PublicKeyPEM, payloadBytes, sig) {
		return fail(ReasonSignatureInvalid, payload.K)
	}

	leewaySeconds := int64(v.leeway / time.Second)
	if payload.E+leewaySeconds < now.Unix() {
		return fail(ReasonExpired, fmt.Sprintf("exp %d now %d leeway %d", payload.E, now.Unix(), leewaySeconds))
	}

	return Result{
		OK:           true,
		Payload:      payload,
		PayloadBytes: payloadBytes,
		Signature:    sig,
		Issuer:       issuer,
		TokenHash:    HashPayloadBytes(payloadBytes),
	}
}

// HashPayloadBytes is the token hash: SHA-256 hex of the canonical payload bytes.
func HashPayloadBytes(payloadBytes []byte) string {
	return canonical.SHA256Hex(payloadBytes)
}

// PolicyHash binds a code's policy object into a token's c field.
func PolicyHash(policy any) (string, error) {
	return canonical.HashHex(policy)
}

func validateV3(p PayloadV3) error {
	switch {
	case p.V != VersionV3:
		return fmt.Errorf("%w: v must be 3", ErrInvalidTokenPayload)
	case strings.TrimSpace(p.K) == "":
		return fmt.Errorf("%w: k must be a non-empty string", ErrInvalidTokenPayload)
	case strings.TrimSpace(p.C) == "":
		return fmt.Errorf("%w: c must be a non-empty string", ErrInvalidTokenPayload)
	case p.E < 1:
		return fmt.Errorf("%w: e must be epoch seconds", ErrInvalidTokenPayload)
	}
	return nil
}

func parseStrictV3(raw []byte) (PayloadV3, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return PayloadV3{}, errors.New("payload must be an object")
	}
	if err := exactFields(fields, v3Fields); err != nil {
		return PayloadV3{}, err
	}

	var p PayloadV3
	version, ok := numberField(fields["v"])
	if !ok || version != VersionV3 {
		return PayloadV3{}, errors.New("v must be 3")
	}
	p.V = VersionV3
	if err := json.Unmarshal(fields["k"], &p.K); err != nil {
		return PayloadV3{}, errors.New("k must be a string")
	}
	if err := json.Unmarshal(fields["c"], &p.C); err != nil {
		return PayloadV3{}, errors.New("c must be a string")
	}
	exp, ok := numberField(fields["e"])
	if !ok {
		return PayloadV3{}, errors.New("e must be epoch seconds integer")
	}
	p.E = exp
	if err := validateV3(p); err != nil {
		return PayloadV3{}, err
	}
	return p, nil
}

func exactFields(fields map[string]json.RawMessage, allowed []string) error {
	for key := range fields {
		if !slices.Contains(allowed, key) {
			return fmt.Errorf("unsupported field: %s", key)
		}
	}
	for _, a := range allowed {
		if _, ok := fields[a]; !ok {
			return fmt.Errorf("missing required field: %s", a)
		}
	}
	return nil
}

// numberField parses an integral JSON number within the exact float64 range.
func numberField(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
