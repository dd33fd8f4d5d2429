// Package packs is the write-once log of issued packs, keyed by collection,
// version and pack id.
package packs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/platform/sentinel"
)

const DefaultPrefix = "pixpax/packs"

// ErrPackExists is returned when a pack id is appended twice.
var ErrPackExists = fmt.Errorf("pack already recorded: %w", sentinel.ErrAlreadyExists)

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

func (s *Store) key(collectionID, version, packID string) string {
	return objectstore.Join(s.prefix, collectionID, version, packID+".json")
}

// Append records pack. A pack id is written at most once.
func (s *Store) Append(ctx context.Context, pack models.Pack) error {
	if pack.PackID == "" || pack.CollectionID == "" || pack.CollectionVersion == "" {
		return fmt.Errorf("pack id and scope are required: %w", sentinel.ErrInvalidInput)
	}
	data, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("encode pack: %w", err)
	}
	created, err := s.gw.PutIfAbsent(ctx, s.key(pack.CollectionID, pack.CollectionVersion, pack.PackID), data)
	if err != nil {
		return fmt.Errorf("append pack: %w", err)
	}
	if !created {
		return ErrPackExists
	}
	return nil
}

func (s *Store) Find(ctx context.Context, collectionID, version, packID string) (*models.Pack, error) {
	data, err := s.gw.Get(ctx, s.key(collectionID, version, packID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("pack %s: %w", packID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read pack: %w", err)
	}
	var pack models.Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode pack: %w", err)
	}
	return &pack, nil
}
