// Package signing holds the ECDSA P-256/SHA-256 primitives shared by pack
// entries, redeem tokens and receipts.
package signing

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs canonical bytes with one issuer key.
type Signer struct {
	key       *ecdsa.PrivateKey
	keyID     string
	publicPEM string
}

// NewSigner parses privatePEM and derives the key id. A non-empty expectedKeyID
// must match the derived one.
func NewSigner(privatePEM, expectedKeyID string) (*Signer, error) {
	key, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	return NewSignerFromKey(key, expectedKeyID)
}

// NewSignerFromKey wraps an already parsed key.
func NewSignerFromKey(key *ecdsa.PrivateKey, expectedKeyID string) (*Signer, error) {
	publicPEM, err := PublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	keyID := KeyID(publicPEM)
	if expectedKeyID != "" && expectedKeyID != keyID {
		return nil, fmt.Errorf("%w: configured %s, derived %s", ErrKeyIDMismatch, expectedKeyID, keyID)
	}
	return &Signer{key: key, keyID: keyID, publicPEM: publicPEM}, nil
}

// KeyID returns the derived key id.
func (s *Signer) KeyID() string { return s.keyID }

// PublicKeyPEM returns the SPKI PEM of the signing key.
func (s *Signer) PublicKeyPEM() string { return s.publicPEM }

// PublicKey returns the verifying key.
func (s *Signer) PublicKey() *ecdsa.PublicKey { return &s.key.PublicKey }

// Sign returns a raw 64-byte signature over msg.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	sig, err := jwt.SigningMethodES256.Sign(string(msg), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify checks a raw or DER signature over msg.
func Verify(pub *ecdsa.PublicKey, msg, sig []byte) bool {
	if pub == nil {
		return false
	}
	raw, err := ToRaw(sig)
	if err != nil {
		return false
	}
	return jwt.SigningMethodES256.Verify(string(msg), raw, pub) == nil
}

// VerifyPEM is Verify with a PEM-encoded public key.
func VerifyPEM(publicPEM string, msg, sig []byte) bool {
	pub, err := ParsePublicKey(publicPEM)
	if err != nil {
		return false
	}
	return Verify(pub, msg, sig)
}
