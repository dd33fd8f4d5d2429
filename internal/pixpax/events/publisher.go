package events

import (
	"context"
	"log/slog"
	"sync"

	dErrors "pixpax/pkg/domain-errors"
)

// Sink persists or forwards events.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Publisher hands events to a sink, either inline or through a buffered
// background goroutine.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
	once   sync.Once
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events and writes them in the background.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.process()
	}
	return p
}

func (p *Publisher) process() {
	defer p.wg.Done()
	for e := range p.events {
		if err := p.sink.Write(context.Background(), e); err != nil {
			p.logger.Error("failed to write event",
				"error", err,
				"event_id", e.EventID,
				"event_type", e.Type,
			)
		}
	}
}

// Emit validates e and writes or enqueues it. A full async buffer drops the
// event and reports an internal error.
func (p *Publisher) Emit(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "invalid event")
	}
	if !p.async {
		return p.sink.Write(ctx, e)
	}
	select {
	case p.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.Warn("event buffer full, event dropped",
			"event_id", e.EventID,
			"event_type", e.Type,
		)
		return dErrors.New(dErrors.CodeInternal, "event buffer full")
	}
}

// Close stops the async writer after draining queued events.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.async {
			close(p.events)
			p.wg.Wait()
		}
	})
}
