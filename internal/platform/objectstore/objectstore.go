// Package objectstore is a small key/value object gateway used for content
// documents, the pack log and ledger segments. Keys are slash separated paths.
package objectstore

import (
	"context"
	"strings"
)

// Gateway reads and writes opaque objects by key. Get returns
// sentinel.ErrNotFound for missing keys.
type Gateway interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// PutIfAbsent writes data only when key does not exist yet and reports
	// whether the write happened.
	PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error)
	// List returns all keys starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Join builds an object key from path segments, dropping empty ones.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
