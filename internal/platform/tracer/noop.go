package tracer

import "context"

// Noop does nothing. Used in tests and when tracing is disabled.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error)                     {}
func (noopSpan) SetAttributes(...Attribute)    {}
func (noopSpan) AddEvent(string, ...Attribute) {}

var (
	_ Tracer = Noop{}
	_ Span   = noopSpan{}
)
