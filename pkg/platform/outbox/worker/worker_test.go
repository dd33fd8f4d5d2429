package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"pixpax/internal/platform/kafka/producer"
	"pixpax/pkg/platform/outbox"
	"pixpax/pkg/platform/outbox/metrics"
)

type fakeProducer struct {
	mu   sync.Mutex
	sent []*producer.Message
	down map[string]bool
}

func (p *fakeProducer) ProduceAll(_ context.Context, msgs []*producer.Message) []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := make([]error, len(msgs))
	for i, m := range msgs {
		if p.down[string(m.Key)] {
			errs[i] = errors.New("broker unavailable")
			continue
		}
		p.sent = append(p.sent, m)
	}
	return errs
}

func (p *fakeProducer) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, m := range p.sent {
		out[i] = string(m.Key)
	}
	return out
}

type RelaySuite struct {
	suite.Suite
	ctx     context.Context
	store   *outbox.MemoryStore
	prod    *fakeProducer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = outbox.NewMemoryStore()
	s.prod = &fakeProducer{down: map[string]bool{}}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *RelaySuite) add(key string, at time.Time) *outbox.Record {
	rec := outbox.NewRecord(key, "pack.issued", []byte(`{"packId":"`+key+`"}`), at).
		WithHeader("event_id", "evt-"+key)
	s.Require().NoError(s.store.Append(s.ctx, rec))
	return rec
}

func (s *RelaySuite) backlog() int64 {
	n, err := s.store.BacklogSize(s.ctx)
	s.Require().NoError(err)
	return n
}

func (s *RelaySuite) TestPassPublishesInCreationOrder() {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.add("p2", base.Add(time.Second))
	first := s.add("p1", base)

	r := New(s.store, s.prod, Config{Topic: "t"}, s.metrics, s.logger)
	s.Equal(2, r.Pass(s.ctx))

	s.Equal([]string{"p1", "p2"}, s.prod.keys())
	msg := s.prod.sent[0]
	s.Equal("t", msg.Topic)
	s.Equal("pack.issued", msg.Headers["event_type"])
	s.Equal("evt-p1", msg.Headers["event_id"])
	s.Equal(first.ID.String(), msg.Headers["outbox_id"])
	s.Zero(s.backlog())
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Relayed))
}

func (s *RelaySuite) TestUnpublishedRecordsStayInBacklog() {
	now := time.Now()
	s.add("ok", now)
	s.add("bad", now.Add(time.Millisecond))
	s.prod.down["bad"] = true

	r := New(s.store, s.prod, Config{}, s.metrics, s.logger)
	s.Equal(1, r.Pass(s.ctx))
	s.Equal(int64(1), s.backlog())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Failures))

	s.Require().NoError(r.RefreshBacklog(s.ctx))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Backlog))

	delete(s.prod.down, "bad")
	s.Equal(1, r.Pass(s.ctx))
	s.Equal([]string{"ok", "bad"}, s.prod.keys())
}

func (s *RelaySuite) TestRetentionPrunesRelayed() {
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	r := New(s.store, s.prod, Config{Retention: time.Hour}, nil, s.logger)
	r.now = func() time.Time { return clock }

	s.add("old", clock)
	s.Equal(1, r.Pass(s.ctx))

	clock = clock.Add(2 * time.Hour)
	s.add("new", clock)
	s.Equal(1, r.Pass(s.ctx))

	pruned, err := s.store.Prune(s.ctx, clock.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(1), pruned, "only the second record should remain")
}

func (s *RelaySuite) TestRunDrainsOnCancel() {
	r := New(s.store, s.prod, Config{Interval: time.Hour}, nil, s.logger)
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	s.add("p1", time.Now())
	s.add("p2", time.Now())
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("relay did not stop")
	}
	s.Len(s.prod.keys(), 2)
}
