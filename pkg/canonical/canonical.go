// Package canonical produces deterministic JSON bytes (RFC 8785 / JCS) and
// the SHA-256 digests derived from them. Keys are sorted, whitespace is
// removed and numbers use the ECMAScript form, so the output matches what a
// JavaScript JSON.stringify over sorted keys would produce.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Marshal encodes v as canonical JSON.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return Transform(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Transform canonicalizes already-encoded JSON.
func Transform(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize json: %w", err)
	}
	return out, nil
}

// HashHex returns the lowercase hex SHA-256 of the canonical encoding of v.
func HashHex(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}

// SHA256Hex returns the lowercase hex SHA-256 of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Equal reports whether raw is already in canonical form.
func Equal(raw []byte) bool {
	out, err := jcs.Transform(raw)
	if err != nil {
		return false
	}
	return bytes.Equal(out, raw)
}
