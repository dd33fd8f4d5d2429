// Package tracer is a small tracing abstraction over OpenTelemetry so that
// services can emit spans without importing otel directly.
//
// Implementations:
//   - Noop: tests
//   - OTel: global or injected OpenTelemetry tracer
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanIssuePack  = "pixpax.issue_pack"
	SpanDrawCards  = "pixpax.draw_cards"
	SpanMintCode   = "pixpax.mint_code"
	SpanRedeem     = "pixpax.redeem"
	SpanVerifyPack = "pixpax.verify_pack"
)

// Attribute keys.
const (
	AttrCollectionID = "collection_id"
	AttrVersion      = "collection_version"
	AttrDropID       = "drop_id"
	AttrMode         = "issuance.mode"
	AttrReused       = "issuance.reused"
	AttrCount        = "pack.count"
	AttrPackID       = "pack_id"
	AttrCodeID       = "code_id"
	AttrReason       = "reason"
)

// Event names.
const (
	EventClaimReplayed = "claim.replayed"
	EventSigned        = "pack.signed"
)
