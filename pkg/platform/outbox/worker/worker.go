// Package worker relays outbox records to Kafka.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pixpax/internal/platform/kafka/producer"
	"pixpax/pkg/platform/outbox"
	"pixpax/pkg/platform/outbox/metrics"
)

// Producer publishes a batch and reports a per-message outcome.
type Producer interface {
	ProduceAll(ctx context.Context, msgs []*producer.Message) []error
}

// Config tunes a Relay. Zero values take the defaults.
type Config struct {
	Topic     string
	BatchSize int
	Interval  time.Duration
	// Retention prunes relayed records older than this after each pass.
	// Zero keeps them.
	Retention time.Duration
	// DrainTimeout bounds the final passes Run makes after its context ends.
	DrainTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Topic == "" {
		c.Topic = "pixpax.events"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Interval <= 0 {
		c.Interval = 250 * time.Millisecond
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
}

// Relay moves the outbox backlog onto a topic. Records that fail to publish
// stay in the backlog for the next pass; a record published but not marked
// is sent again, so consumers dedupe on the event_id header.
type Relay struct {
	store    outbox.Store
	producer Producer
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a relay. m may be nil.
func New(store outbox.Store, prod Producer, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Relay {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{store: store, producer: prod, cfg: cfg, metrics: m, logger: logger, now: time.Now}
}

// Run relays on every tick until ctx ends, then drains what is left.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case <-ticker.C:
			r.Pass(ctx)
		}
	}
}

func (r *Relay) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.DrainTimeout)
	defer cancel()
	for ctx.Err() == nil && r.Pass(ctx) > 0 {
	}
}

// Pass relays one batch and returns how many records it marked relayed.
func (r *Relay) Pass(ctx context.Context) int {
	start := r.now()
	defer func() {
		if r.metrics != nil {
			r.metrics.PassDuration.Observe(time.Since(start).Seconds())
		}
	}()

	batch, err := r.store.Backlog(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "read outbox backlog", "error", err)
		r.failed(1)
		return 0
	}
	if len(batch) == 0 {
		return 0
	}

	msgs := make([]*producer.Message, len(batch))
	for i, rec := range batch {
		msgs[i] = r.message(rec)
	}
	sent := r.now()
	errs := r.producer.ProduceAll(ctx, msgs)
	if r.metrics != nil {
		r.metrics.PublishDuration.Observe(time.Since(sent).Seconds())
		r.metrics.BatchSize.Observe(float64(len(batch)))
	}

	acked := make([]uuid.UUID, 0, len(batch))
	for i, rec := range batch {
		if errs[i] != nil {
			r.logger.WarnContext(ctx, "outbox record not published",
				"id", rec.ID,
				"type", rec.Type,
				"error", errs[i],
			)
			r.failed(1)
			continue
		}
		acked = append(acked, rec.ID)
	}

	n, err := r.store.MarkRelayed(ctx, r.now(), acked...)
	if err != nil {
		r.logger.ErrorContext(ctx, "mark outbox records relayed", "count", len(acked), "error", err)
		return 0
	}
	if r.metrics != nil {
		r.metrics.Relayed.Add(float64(n))
	}
	if r.cfg.Retention > 0 {
		if _, err := r.store.Prune(ctx, r.now().Add(-r.cfg.Retention)); err != nil {
			r.logger.WarnContext(ctx, "prune outbox", "error", err)
		}
	}
	return int(n)
}

func (r *Relay) message(rec *outbox.Record) *producer.Message {
	headers := make(map[string]string, len(rec.Headers)+2)
	for k, v := range rec.Headers {
		headers[k] = v
	}
	headers["event_type"] = rec.Type
	headers["outbox_id"] = rec.ID.String()
	return &producer.Message{
		Topic:   r.cfg.Topic,
		Key:     []byte(rec.Key),
		Value:   rec.Payload,
		Headers: headers,
	}
}

func (r *Relay) failed(n int) {
	if r.metrics != nil {
		r.metrics.Failures.Add(float64(n))
	}
}

// RefreshBacklog sets the backlog gauge.
func (r *Relay) RefreshBacklog(ctx context.Context) error {
	if r.metrics == nil {
		return nil
	}
	n, err := r.store.BacklogSize(ctx)
	if err != nil {
		return err
	}
	r.metrics.Backlog.Set(float64(n))
	return nil
}
