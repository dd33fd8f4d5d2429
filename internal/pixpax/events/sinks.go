package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pixpax/internal/platform/kafka/producer"
	"pixpax/pkg/platform/circuit"
	"pixpax/pkg/platform/outbox"
)

// MemorySink keeps events in order. Used in tests and single-node runs.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// OfType filters Events by type.
func (s *MemorySink) OfType(t Type) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Producer is the subset of the Kafka producer used by KafkaSink.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes directly to a topic, keyed by aggregate id so that
// events about one pack or code stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(e.AggregateID()),
		Value: value,
		Headers: map[string]string{
			"event_id":       e.EventID,
			"event_type":     string(e.Type),
			"aggregate_type": e.Type.AggregateType(),
		},
	})
}

// OutboxSink appends events to the outbox; a worker.Relay moves them to
// Kafka.
type OutboxSink struct {
	store outbox.Store
}

func NewOutboxSink(store outbox.Store) *OutboxSink {
	return &OutboxSink{store: store}
}

func (s *OutboxSink) Write(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, e.OccurredAt)
	if err != nil {
		at = time.Now()
	}
	rec := outbox.NewRecord(e.AggregateID(), string(e.Type), value, at).
		WithHeader("event_id", e.EventID).
		WithHeader("aggregate_type", e.Type.AggregateType())
	if err := s.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append event %s to outbox: %w", e.EventID, err)
	}
	return nil
}

// FanOut writes to every sink and joins their errors.
type FanOut []Sink

func (f FanOut) Write(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a structured logger. It is the sink of last
// resort when neither postgres nor kafka is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "domain event",
		"event_id", e.EventID,
		"event_type", e.Type,
		"aggregate_id", e.AggregateID(),
		"occurred_at", e.OccurredAt,
	)
	return nil
}

// GuardedSink writes to primary behind a circuit breaker. Events that
// primary rejects, or that arrive while the breaker is open, go to fallback.
type GuardedSink struct {
	primary  Sink
	fallback Sink
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewGuardedSink(primary, fallback Sink, breaker *circuit.Breaker, logger *slog.Logger) *GuardedSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedSink{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *GuardedSink) Write(ctx context.Context, e Event) error {
	if !s.breaker.Allow() {
		return s.fallback.Write(ctx, e)
	}
	err := s.primary.Write(ctx, e)
	if err == nil {
		if s.breaker.RecordSuccess() == circuit.Closed {
			s.logger.InfoContext(ctx, "circuit breaker closed", "circuit", s.breaker.Name())
		}
		return nil
	}
	if s.breaker.RecordFailure() == circuit.Opened {
		s.logger.ErrorContext(ctx, "circuit breaker opened", "circuit", s.breaker.Name(), "error", err)
	}
	return errors.Join(err, s.fallback.Write(ctx, e))
}
