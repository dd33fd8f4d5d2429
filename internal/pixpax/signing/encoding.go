package signing

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errBase64 = errors.New("invalid base64")

// EncodeB64URL encodes b as unpadded base64url.
func EncodeB64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeB64URL decodes strict unpadded base64url.
func DecodeB64URL(s string) ([]byte, error) {
	if s == "" || strings.ContainsAny(s, "=+/") {
		return nil, errBase64
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// DecodeSignature accepts base64url or standard base64, padded or not.
func DecodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errBase64
	}
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
