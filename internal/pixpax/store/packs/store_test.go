package packs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/platform/sentinel"
)

func TestAppendIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := New(objectstore.NewMemory(), "")
	pack := models.Pack{PackID: "p1", CollectionID: "c", CollectionVersion: "v1", PackRoot: "root"}

	require.NoError(t, store.Append(ctx, pack))

	pack.PackRoot = "other"
	err := store.Append(ctx, pack)
	assert.ErrorIs(t, err, ErrPackExists)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)

	got, err := store.Find(ctx, "c", "v1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "root", got.PackRoot)
}

func TestFindMissing(t *testing.T) {
	store := New(objectstore.NewMemory(), "")
	_, err := store.Find(context.Background(), "c", "v1", "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestAppendRequiresScope(t *testing.T) {
	store := New(objectstore.NewMemory(), "")
	err := store.Append(context.Background(), models.Pack{PackID: "p1"})
	assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
}
