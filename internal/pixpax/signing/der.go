package signing

import (
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// RawSize is the length of a P-256 r||s signature.
const RawSize = 64

const scalarSize = RawSize / 2

// Format is the detected encoding of a signature.
type Format int

const (
	FormatUnknown Format = iota
	FormatRaw
	FormatDER
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatDER:
		return "der"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidRawSignature = errors.New("raw signature must be 64 bytes")
	ErrInvalidDERSignature = errors.New("malformed DER ECDSA signature")
)

// DetectFormat classifies sig by length first: 64 bytes is raw, anything
// else must parse as DER.
func DetectFormat(sig []byte) Format {
	if len(sig) == RawSize {
		return FormatRaw
	}
	if _, _, err := parseDER(sig); err == nil {
		return FormatDER
	}
	return FormatUnknown
}

// RawToDER converts r||s into an ASN.1 SEQUENCE of two INTEGERs.
func RawToDER(raw []byte) ([]byte, error) {
	if len(raw) != RawSize {
		return nil, ErrInvalidRawSignature
	}
	r := new(big.Int).SetBytes(raw[:scalarSize])
	s := new(big.Int).SetBytes(raw[scalarSize:])

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

// DERToRaw converts a DER signature into zero-padded r||s.
func DERToRaw(der []byte) ([]byte, error) {
	r, s, err := parseDER(der)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, RawSize)
	r.FillBytes(raw[:scalarSize])
	s.FillBytes(raw[scalarSize:])
	return raw, nil
}

// ToRaw returns sig in raw form regardless of its input encoding.
func ToRaw(sig []byte) ([]byte, error) {
	switch DetectFormat(sig) {
	case FormatRaw:
		return sig, nil
	case FormatDER:
		return DERToRaw(sig)
	default:
		return nil, ErrInvalidDERSignature
	}
}

func parseDER(der []byte) (*big.Int, *big.Int, error) {
	input := cryptobyte.String(der)
	var inner cryptobyte.String
	r, s := new(big.Int), new(big.Int)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, nil, ErrInvalidDERSignature
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > scalarSize*8 || s.BitLen() > scalarSize*8 {
		return nil, nil, ErrInvalidDERSignature
	}
	return r, s, nil
}
