package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"

	"pixpax/pkg/platform/sentinel"
	psync "pixpax/pkg/platform/sync"
)

// Pebble stores objects in an embedded Pebble database. Writes are synced.
type Pebble struct {
	db     *pebble.DB
	logger *slog.Logger
	// PutIfAbsent check-and-set is serialized per key within this process.
	locks *psync.KeyLock
}

// OpenPebble opens (or creates) a Pebble database at path.
func OpenPebble(path string, logger *slog.Logger) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	if logger != nil {
		logger.Info("pebble object store opened", "path", path)
	}
	return &Pebble{db: db, logger: logger, locks: psync.NewKeyLock()}, nil
}

func (p *Pebble) Get(_ context.Context, key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close() //nolint:errcheck // value already copied
	return append([]byte(nil), value...), nil
}

func (p *Pebble) Put(_ context.Context, key string, data []byte) error {
	if err := p.db.Set([]byte(key), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}

func (p *Pebble) PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	defer p.locks.Lock(key)()
	_, closer, err := p.db.Get([]byte(key))
	if err == nil {
		_ = closer.Close()
		return false, nil
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return false, fmt.Errorf("pebble get %s: %w", key, err)
	}
	if err := p.Put(ctx, key, data); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Pebble) List(_ context.Context, prefix string) ([]string, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close() //nolint:errcheck // read-only iterator

	keys := make([]string, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), []byte(prefix)) {
			break
		}
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	return keys, nil
}

// Health reports whether the database answers reads.
func (p *Pebble) Health(_ context.Context) error {
	_, closer, err := p.db.Get([]byte("__health"))
	if err == nil {
		return closer.Close()
	}
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	return err
}

func (p *Pebble) Close() error {
	if err := p.db.Close(); err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.Info("pebble object store closed")
	}
	return nil
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

var _ Gateway = (*Pebble)(nil)
