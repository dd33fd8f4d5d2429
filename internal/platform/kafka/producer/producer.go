// Package producer publishes pixpax records to Kafka with franz-go and
// waits for broker acknowledgement.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	pstrings "pixpax/pkg/platform/strings"
)

var ErrClosed = errors.New("producer is closed")

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

func (m *Message) record() *kgo.Record {
	r := &kgo.Record{Topic: m.Topic, Key: m.Key, Value: m.Value}
	for k, v := range m.Headers {
		r.Headers = append(r.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return r
}

// Config is the producer's broker and durability settings. Acks is "0",
// "1" or "all" (the default).
type Config struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	Linger          time.Duration
}

func (c Config) options() ([]kgo.Opt, error) {
	seeds := pstrings.SplitList(c.Brokers)
	if len(seeds) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	linger := c.Linger
	if linger <= 0 {
		linger = 5 * time.Millisecond
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.RecordRetries(c.Retries),
		kgo.ProducerLinger(linger),
		kgo.AllowAutoTopicCreation(),
	}
	switch c.Acks {
	case "0":
		opts = append(opts, kgo.RequiredAcks(kgo.NoAck()), kgo.DisableIdempotentWrite())
	case "1":
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	case "", "all", "-1":
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	default:
		return nil, fmt.Errorf("unsupported acks %q", c.Acks)
	}
	if c.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(c.DeliveryTimeout))
	}
	return opts, nil
}

type Producer struct {
	client *kgo.Client
	logger *slog.Logger

	// mu is held shared by produce calls and exclusively by Close.
	mu     sync.RWMutex
	closed bool
}

func New(cfg Config, logger *slog.Logger) (*Producer, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{client: client, logger: logger}, nil
}

// Produce publishes one message and waits for its acknowledgement.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	return p.ProduceAll(ctx, []*Message{msg})[0]
}

// ProduceAll publishes msgs in one batch. The result holds one entry per
// message, nil where the broker acknowledged it.
func (p *Producer) ProduceAll(ctx context.Context, msgs []*Message) []error {
	errs := make([]error, len(msgs))
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		for i := range errs {
			errs[i] = ErrClosed
		}
		return errs
	}

	records := make([]*kgo.Record, len(msgs))
	for i, m := range msgs {
		records[i] = m.record()
	}
	for i, res := range p.client.ProduceSync(ctx, records...) {
		if res.Err != nil {
			errs[i] = fmt.Errorf("produce to %s: %w", msgs[i].Topic, res.Err)
		}
	}
	return errs
}

// Ping checks that a broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	return p.client.Ping(ctx)
}

// Close flushes buffered records for up to 30s and releases the client.
// Further calls are no-ops.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}
