package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := NewRecord("p1", "pack.issued", []byte(`{}`), at)
	b := NewRecord("c1", "code.minted", []byte(`{}`), at.Add(time.Second))
	require.NoError(t, s.Append(ctx, b, a))
	assert.Error(t, s.Append(ctx, a), "duplicate id")

	backlog, err := s.Backlog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	assert.Equal(t, a.ID, backlog[0].ID)

	n, err := s.MarkRelayed(ctx, at.Add(time.Minute), a.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.MarkRelayed(ctx, at.Add(time.Minute), a.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "already relayed")

	size, err := s.BacklogSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	pruned, err := s.Prune(ctx, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	backlog, err = s.Backlog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, b.ID, backlog[0].ID)
}
