// Package ledger is the append-only issuer audit ledger. Signed issuance
// entries are batched into gzip-compressed JSONL segments. Each segment
// names the hash and key of the one before it, and a checkpoint object
// records the head of the chain.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/canonical"
	"pixpax/pkg/platform/sentinel"
)

const (
	DefaultPrefix        = "pixpax/ledger"
	DefaultFlushMax      = 200
	DefaultFlushInterval = time.Minute
)

// Ledger buffers entries and writes them as chained segments. It assumes a
// single writer per prefix.
type Ledger struct {
	gw         objectstore.Gateway
	prefix     string
	flushMax   int
	interval   time.Duration
	syncWrites bool
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	pending []Line

	flushMu sync.Mutex

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithFlushMax sets how many entries trigger a flush and the largest segment.
func WithFlushMax(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.flushMax = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithSync controls whether every append is flushed before returning.
func WithSync(enabled bool) Option {
	return func(l *Ledger) {
		l.syncWrites = enabled
	}
}

// WithClock overrides the segment timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(gw objectstore.Gateway, prefix string, opts ...Option) *Ledger {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	l := &Ledger{
		gw:         gw,
		prefix:     prefix,
		flushMax:   DefaultFlushMax,
		interval:   DefaultFlushInterval,
		syncWrites: true,
		logger:     slog.Default(),
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) checkpointKey() string {
	return objectstore.Join(l.prefix, "checkpoint.json")
}

// AppendReceipt queues body under packID. In sync mode, or when the queue
// reaches the flush threshold, the entry is written before returning and
// the returned ref names its segment; otherwise Queued is set.
func (l *Ledger) AppendReceipt(ctx context.Context, packID string, body any) (*models.AuditRef, error) {
	if strings.TrimSpace(packID) == "" {
		return nil, fmt.Errorf("pack id is required: %w", sentinel.ErrInvalidInput)
	}
	raw, err := canonical.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode ledger entry: %w", err)
	}
	line := Line{Type: lineTypeEntry, EntryID: canonical.SHA256Hex(raw), PackID: packID, Entry: raw}

	if l.syncWrites {
		l.flushMu.Lock()
		defer l.flushMu.Unlock()
		l.enqueue(line)
		return l.flushUntil(ctx, line.EntryID)
	}

	if queued := l.enqueue(line); queued < l.flushMax {
		return &models.AuditRef{Queued: true}, nil
	}
	l.flushMu.Lock()
	defer l.flushMu.Unlock()
	ref, err := l.flushUntil(ctx, line.EntryID)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (l *Ledger) enqueue(line Line) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, line)
	return len(l.pending)
}

// Pending reports how many entries are waiting for a flush.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// flushUntil writes segments until entryID has been written. If another
// flush already took the entry, the ref reports it as queued.
func (l *Ledger) flushUntil(ctx context.Context, entryID string) (*models.AuditRef, error) {
	for {
		seg, err := l.flushLocked(ctx)
		if err != nil {
			return nil, err
		}
		if seg == nil {
			return &models.AuditRef{Queued: true}, nil
		}
		for _, ln := range seg.Lines {
			if ln.EntryID == entryID {
				return &models.AuditRef{SegmentKey: seg.Key, SegmentHash: seg.Hash}, nil
			}
		}
	}
}

// Flush writes up to the flush threshold of pending entries as one segment.
// It returns nil when nothing was pending.
func (l *Ledger) Flush(ctx context.Context) (*Segment, error) {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()
	return l.flushLocked(ctx)
}

func (l *Ledger) flushLocked(ctx context.Context) (*Segment, error) {
	l.mu.Lock()
	n := min(len(l.pending), l.flushMax)
	batch := append([]Line(nil), l.pending[:n]...)
	l.pending = l.pending[n:]
	l.mu.Unlock()
	if len(batch) == 0 {
		return nil, nil
	}

	seg, err := l.writeSegment(ctx, batch)
	if err != nil {
		l.mu.Lock()
		l.pending = append(batch, l.pending...)
		l.mu.Unlock()
		return nil, err
	}
	return seg, nil
}

func (l *Ledger) writeSegment(ctx context.Context, batch []Line) (*Segment, error) {
	cp, err := l.Checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	at := l.now().UTC()
	meta := SegmentMeta{
		Type:             lineTypeMeta,
		Format:           SegmentFormat,
		Version:          FormatVersion,
		CreatedAt:        at.Format(time.RFC3339Nano),
		SegmentHashInput: SegmentHashInput,
		Compression:      Compression,
		EventCount:       len(batch),
	}
	if cp.HeadSegmentHash != "" {
		h, k := cp.HeadSegmentHash, cp.HeadSegmentKey
		meta.PrevSegmentHash, meta.PrevSegmentKey = &h, &k
	}

	text, err := encodeSegment(meta, batch)
	if err != nil {
		return nil, err
	}
	hash := canonical.SHA256Hex(text)
	key := segmentKey(l.prefix, at, hash)
	body, err := compress(text)
	if err != nil {
		return nil, err
	}
	if _, err := l.gw.PutIfAbsent(ctx, key, body); err != nil {
		return nil, fmt.Errorf("write ledger segment: %w", err)
	}

	next := Checkpoint{
		Format:           CheckpointFormat,
		Version:          FormatVersion,
		UpdatedAt:        at.Format(time.RFC3339Nano),
		Prefix:           l.prefix,
		HeadSegmentHash:  hash,
		HeadSegmentKey:   key,
		SegmentCount:     cp.SegmentCount + 1,
		TotalEvents:      cp.TotalEvents + len(batch),
		SegmentHashInput: SegmentHashInput,
	}
	cpBytes, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode ledger checkpoint: %w", err)
	}
	if err := l.gw.Put(ctx, l.checkpointKey(), cpBytes); err != nil {
		return nil, fmt.Errorf("write ledger checkpoint: %w", err)
	}

	l.logger.Debug("ledger segment written",
		"segment_key", key,
		"segment_hash", hash,
		"events", len(batch),
	)
	return &Segment{Key: key, Hash: hash, Meta: meta, Lines: batch}, nil
}

// Checkpoint returns the current head. An empty ledger has a zero head.
func (l *Ledger) Checkpoint(ctx context.Context) (Checkpoint, error) {
	data, err := l.gw.Get(ctx, l.checkpointKey())
	if errors.Is(err, sentinel.ErrNotFound) {
		return Checkpoint{
			Format:           CheckpointFormat,
			Version:          FormatVersion,
			Prefix:           l.prefix,
			SegmentHashInput: SegmentHashInput,
		}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read ledger checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode ledger checkpoint: %w", err)
	}
	if cp.Format != CheckpointFormat {
		return Checkpoint{}, fmt.Errorf("unexpected checkpoint format %q: %w", cp.Format, sentinel.ErrInvalidState)
	}
	return cp, nil
}

// ReadSegment loads a segment, checks that its JSONL text hashes to the
// hash embedded in key and parses it.
func (l *Ledger) ReadSegment(ctx context.Context, key string) (*Segment, error) {
	want, err := hashFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSegment, key, err)
	}
	data, err := l.gw.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read ledger segment %s: %w", key, err)
	}
	text, err := decompress(data)
	if err != nil {
		return nil, err
	}
	got := canonical.SHA256Hex(text)
	if got != want {
		return nil, fmt.Errorf("%w: %s hashes to %s", ErrSegmentIntegrity, key, got)
	}
	meta, lines, err := parseSegment(text)
	if err != nil {
		return nil, err
	}
	return &Segment{Key: key, Hash: got, Meta: meta, Lines: lines}, nil
}

// Start runs the periodic flush loop until Close.
func (l *Ledger) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go l.run(ctx)
	})
}

func (l *Ledger) run(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			if _, err := l.Flush(ctx); err != nil {
				l.logger.Error("ledger flush failed", "error", err, "pending", l.Pending())
			}
		}
	}
}

// Close stops the flush loop and drains everything still pending.
func (l *Ledger) Close(ctx context.Context) error {
	var first bool
	l.closeOnce.Do(func() {
		close(l.stop)
		l.startOnce.Do(func() { close(l.done) })
		first = true
	})
	if first {
		select {
		case <-l.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for l.Pending() > 0 {
		if _, err := l.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
