package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"pixpax/internal/pixpax/issuers"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/token"
)

type signTokenOutput struct {
	Token      string            `json:"token"`
	TokenHash  string            `json:"tokenHash"`
	PolicyHash string            `json:"policyHash"`
	Policy     models.CodePolicy `json:"policy"`
	KeyID      string            `json:"keyId"`
	ExpiresAt  time.Time         `json:"expiresAt"`
}

func runSignToken(_ context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("sign-token", out)
	keyFile := fs.String("private-key-file", "", "issuer private key PEM file")
	keyID := fs.String("key-id", "", "expected key id of the private key")
	collection := fs.String("collection", "", "collection id")
	version := fs.String("version", "", "collection version")
	kind := fs.String("kind", string(models.CodeKindPack), "code kind: pack or fixed-card")
	cardID := fs.String("card-id", "", "card id for fixed-card codes")
	dropID := fs.String("drop-id", "", "drop id bound into the policy")
	count := fs.Int("count", 0, "pack size for pack codes")
	codeID := fs.String("code-id", "", "code id; generated when empty")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "private-key-file", "collection", "version"); err != nil {
		return err
	}
	k, ok := models.ParseCodeKind(*kind)
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", errUsage, *kind)
	}
	if k == models.CodeKindFixedCard && *cardID == "" {
		return fmt.Errorf("%w: --card-id is required for fixed-card codes", errUsage)
	}
	if *ttl <= 0 {
		return fmt.Errorf("%w: --ttl must be positive", errUsage)
	}

	pemText, err := readFile(*keyFile)
	if err != nil {
		return err
	}
	signer, err := signing.NewSigner(pemText, *keyID)
	if err != nil {
		return err
	}

	policy := models.CodePolicy{
		CodeID:       *codeID,
		CollectionID: *collection,
		Version:      *version,
		Kind:         k,
		CardID:       *cardID,
		DropID:       *dropID,
		Count:        *count,
	}
	if policy.CodeID == "" {
		policy.CodeID = uuid.NewString()
	}
	policyHash, err := token.PolicyHash(policy)
	if err != nil {
		return err
	}
	exp := time.Now().Add(*ttl).Truncate(time.Second).UTC()
	signed, err := token.SignV3(token.PayloadV3{V: 3, K: signer.KeyID(), C: policyHash, E: exp.Unix()}, signer)
	if err != nil {
		return err
	}
	return writeJSON(out, signTokenOutput{
		Token:      signed.Token,
		TokenHash:  signed.TokenHash,
		PolicyHash: policyHash,
		Policy:     policy,
		KeyID:      signer.KeyID(),
		ExpiresAt:  exp,
	})
}

type verifyTokenOutput struct {
	OK        bool             `json:"ok"`
	Reason    string           `json:"reason,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	TokenHash string           `json:"tokenHash,omitempty"`
	Payload   *token.PayloadV3 `json:"payload,omitempty"`
	Issuer    *issuers.Issuer  `json:"issuer,omitempty"`
}

func runVerifyToken(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("verify-token", out)
	tok := fs.String("token", "", "token to verify")
	issuersFile := fs.String("issuers-file", "", "issuer registry YAML")
	pubFile := fs.String("public-key-file", "", "single trusted issuer public key PEM")
	leeway := fs.Duration("exp-leeway", 0, "tolerated clock skew on expiry")
	at := fs.String("at", "", "evaluate expiry at this RFC3339 time instead of now")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "token"); err != nil {
		return err
	}
	if *issuersFile == "" && *pubFile == "" {
		return fmt.Errorf("%w: one of --issuers-file or --public-key-file is required", errUsage)
	}

	reg := issuers.NewRegistry()
	if *issuersFile != "" {
		if err := reg.LoadYAML(*issuersFile); err != nil {
			return err
		}
	}
	if *pubFile != "" {
		pemText, err := readFile(*pubFile)
		if err != nil {
			return err
		}
		if err := reg.Add(issuers.Issuer{PublicKeyPEM: pemText, Status: issuers.StatusActive}); err != nil {
			return err
		}
	}

	now := time.Now()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("%w: --at: %v", errUsage, err)
		}
		now = t
	}

	res := token.NewVerifier(reg, token.WithExpLeeway(*leeway)).Verify(ctx, *tok, now)
	report := verifyTokenOutput{OK: res.OK, Reason: res.Reason, Detail: res.Detail, TokenHash: res.TokenHash, Issuer: res.Issuer}
	if res.OK {
		report.Payload = &res.Payload
	}
	if err := writeJSON(out, report); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("token rejected: %s", res.Reason)
	}
	return nil
}

func runCollectorSig(_ context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("collector-sig", out)
	keyFile := fs.String("private-key-file", "", "collector private key PEM file")
	tokenHash := fs.String("token-hash", "", "hash of the token being redeemed")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "private-key-file", "token-hash"); err != nil {
		return err
	}
	pemText, err := readFile(*keyFile)
	if err != nil {
		return err
	}
	signer, err := signing.NewSigner(pemText, "")
	if err != nil {
		return err
	}
	sig, err := signer.Sign([]byte(*tokenHash))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, signing.EncodeB64URL(sig))
	return err
}
