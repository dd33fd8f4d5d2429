// Package content reads and writes the versioned card catalog. Documents live
// under <prefix>/<collectionId>/<version>/ on an object gateway.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/platform/sentinel"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "pixpax/collections"

// ErrInvalidDocument wraps sentinel.ErrInvalidInput for malformed catalog documents.
var ErrInvalidDocument = fmt.Errorf("invalid content document: %w", sentinel.ErrInvalidInput)

// Store is the content store. The zero value is not usable.
type Store struct {
	gw     objectstore.Gateway
	prefix string
}

func New(gw objectstore.Gateway, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Store{gw: gw, prefix: prefix}
}

func (s *Store) base(collectionID, version string) string {
	return objectstore.Join(s.prefix, collectionID, version)
}

func (s *Store) collectionKey(collectionID, version string) string {
	return objectstore.Join(s.base(collectionID, version), "collection.json")
}

func (s *Store) indexKey(collectionID, version string) string {
	return objectstore.Join(s.base(collectionID, version), "index.json")
}

func (s *Store) cardKey(collectionID, version, cardID string) string {
	return objectstore.Join(s.base(collectionID, version), "cards", cardID+".json")
}

func (s *Store) retiredPrefix(collectionID, version string) string {
	return objectstore.Join(s.base(collectionID, version), "retired") + "/"
}

func (s *Store) GetCollection(ctx context.Context, collectionID, version string) (*models.Collection, error) {
	var c models.Collection
	if err := s.read(ctx, s.collectionKey(collectionID, version), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetIndex(ctx context.Context, collectionID, version string) (*models.Index, error) {
	var idx models.Index
	if err := s.read(ctx, s.indexKey(collectionID, version), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (s *Store) GetCard(ctx context.Context, collectionID, version, cardID string) (*models.Card, error) {
	if strings.TrimSpace(cardID) == "" {
		return nil, fmt.Errorf("%w: card id is required", ErrInvalidDocument)
	}
	var c models.Card
	if err := s.read(ctx, s.cardKey(collectionID, version, cardID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// PutCollection overwrites the collection document.
func (s *Store) PutCollection(ctx context.Context, c models.Collection) error {
	if err := ValidateCollection(c); err != nil {
		return err
	}
	return s.write(ctx, s.collectionKey(c.CollectionID, c.Version), c)
}

// PutCollectionIfAbsent writes the collection only once.
func (s *Store) PutCollectionIfAbsent(ctx context.Context, c models.Collection) (bool, error) {
	if err := ValidateCollection(c); err != nil {
		return false, err
	}
	return s.writeIfAbsent(ctx, s.collectionKey(c.CollectionID, c.Version), c)
}

func (s *Store) PutIndex(ctx context.Context, idx models.Index) error {
	if err := ValidateIndex(idx); err != nil {
		return err
	}
	return s.write(ctx, s.indexKey(idx.CollectionID, idx.Version), idx)
}

func (s *Store) PutIndexIfAbsent(ctx context.Context, idx models.Index) (bool, error) {
	if err := ValidateIndex(idx); err != nil {
		return false, err
	}
	return s.writeIfAbsent(ctx, s.indexKey(idx.CollectionID, idx.Version), idx)
}

// PutCard overwrites a card. Content is immutable for issued packs, so this
// is only used by seeding tools and tamper tests.
func (s *Store) PutCard(ctx context.Context, c models.Card) error {
	if err := ValidateCard(c); err != nil {
		return err
	}
	return s.write(ctx, s.cardKey(c.CollectionID, c.Version, c.CardID), c)
}

func (s *Store) PutCardIfAbsent(ctx context.Context, c models.Card) (bool, error) {
	if err := ValidateCard(c); err != nil {
		return false, err
	}
	return s.writeIfAbsent(ctx, s.cardKey(c.CollectionID, c.Version, c.CardID), c)
}

// RetireSeries writes a retirement marker. Retiring twice keeps the first marker.
func (s *Store) RetireSeries(ctx context.Context, collectionID, version string, marker models.RetiredSeries) (bool, error) {
	if strings.TrimSpace(marker.SeriesID) == "" {
		return false, fmt.Errorf("%w: series id is required", ErrInvalidDocument)
	}
	key := s.retiredPrefix(collectionID, version) + marker.SeriesID + ".json"
	return s.writeIfAbsent(ctx, key, marker)
}

// RetiredSeries returns the retired series ids of a collection version, sorted.
func (s *Store) RetiredSeries(ctx context.Context, collectionID, version string) ([]string, error) {
	prefix := s.retiredPrefix(collectionID, version)
	keys, err := s.gw.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list retired series: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(k, prefix), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) read(ctx context.Context, key string, out any) error {
	data, err := s.gw.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("%s: %w", key, sentinel.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.gw.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) writeIfAbsent(ctx context.Context, key string, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	created, err := s.gw.PutIfAbsent(ctx, key, data)
	if err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}
	return created, nil
}
