package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "pixpax/service"

// OTel emits spans through an OpenTelemetry tracer. All pixpax spans are
// internal; the HTTP layer owns server spans.
type OTel struct {
	tr trace.Tracer
}

// NewOTel uses the global provider unless a tracer is injected.
func NewOTel(opts ...OTelOption) *OTel {
	o := &OTel{}
	for _, apply := range opts {
		apply(o)
	}
	if o.tr == nil {
		o.tr = otel.GetTracerProvider().Tracer(scopeName)
	}
	return o
}

type OTelOption func(*OTel)

func WithOTelTracer(tr trace.Tracer) OTelOption {
	return func(o *OTel) { o.tr = tr }
}

func (o *OTel) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, s := o.tr.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(keyValues(attrs)...),
	)
	return ctx, otelSpan{s}
}

type otelSpan struct{ trace.Span }

func (s otelSpan) End(err error) {
	if err == nil {
		s.Span.SetStatus(codes.Ok, "")
	} else {
		s.Span.RecordError(err)
		s.Span.SetStatus(codes.Error, err.Error())
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(keyValues(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

// keyValues drops attributes whose value type has no otel equivalent.
func keyValues(attrs []Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		var kv attribute.KeyValue
		switch v := a.Value.(type) {
		case string:
			kv = attribute.String(a.Key, v)
		case bool:
			kv = attribute.Bool(a.Key, v)
		case int64:
			kv = attribute.Int64(a.Key, v)
		case int:
			kv = attribute.Int(a.Key, v)
		case float64:
			kv = attribute.Float64(a.Key, v)
		case []string:
			kv = attribute.StringSlice(a.Key, v)
		default:
			continue
		}
		kvs = append(kvs, kv)
	}
	return kvs
}

var (
	_ Tracer = (*OTel)(nil)
	_ Span   = otelSpan{}
)
