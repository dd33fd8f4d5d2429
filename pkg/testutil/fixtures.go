package testutil

import (
	"context"
	"fmt"
	"time"

	"pixpax/internal/pixpax/models"
)

// CatalogWriter is the subset of the content store a Catalog seeds into.
type CatalogWriter interface {
	PutCollection(ctx context.Context, c models.Collection) error
	PutIndex(ctx context.Context, idx models.Index) error
	PutCard(ctx context.Context, c models.Card) error
}

// Catalog is a small in-memory collection used across tests.
type Catalog struct {
	Collection models.Collection
	Index      models.Index
	Cards      []models.Card
}

// CatalogBuilder provides a fluent interface for building test catalogs.
type CatalogBuilder struct {
	collectionID string
	version      string
	series       []models.Series
	cards        []models.Card
}

// NewCatalogBuilder starts a catalog for collection "c" version "v1".
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{collectionID: "c", version: "v1"}
}

func (b *CatalogBuilder) WithCollection(collectionID, version string) *CatalogBuilder {
	b.collectionID = collectionID
	b.version = version
	return b
}

// WithSeries declares a series and adds n cards to it named <seriesID>-card<i>.
func (b *CatalogBuilder) WithSeries(seriesID string, n int) *CatalogBuilder {
	b.series = append(b.series, models.Series{SeriesID: seriesID, Name: "Series " + seriesID})
	for i := 0; i < n; i++ {
		b.cards = append(b.cards, b.card(fmt.Sprintf("%s-card%d", seriesID, i+1), seriesID, i))
	}
	return b
}

// WithCard adds a named card to an existing or new series.
func (b *CatalogBuilder) WithCard(cardID, seriesID string) *CatalogBuilder {
	declared := false
	for _, s := range b.series {
		if s.SeriesID == seriesID {
			declared = true
		}
	}
	if !declared {
		b.series = append(b.series, models.Series{SeriesID: seriesID})
	}
	b.cards = append(b.cards, b.card(cardID, seriesID, len(b.cards)))
	return b
}

func (b *CatalogBuilder) card(cardID, seriesID string, slot int) models.Card {
	return models.Card{
		CollectionID: b.collectionID,
		Version:      b.version,
		CardID:       cardID,
		SeriesID:     seriesID,
		SlotIndex:    slot,
		Label:        "Card " + cardID,
		RenderPayload: models.RenderPayload{
			GridSize: 4,
			GridB64:  "grid-" + cardID,
		},
	}
}

func (b *CatalogBuilder) Build() Catalog {
	idx := models.Index{
		CollectionID: b.collectionID,
		Version:      b.version,
		Series:       append([]models.Series(nil), b.series...),
		Cards:        make([]string, 0, len(b.cards)),
		CardMap:      make(map[string]models.CardRef, len(b.cards)),
	}
	for _, c := range b.cards {
		idx.Cards = append(idx.Cards, c.CardID)
		idx.CardMap[c.CardID] = models.CardRef{SeriesID: c.SeriesID, SlotIndex: c.SlotIndex, Role: c.Role}
	}
	return Catalog{
		Collection: models.Collection{
			CollectionID: b.collectionID,
			Version:      b.version,
			Name:         "Test collection",
			GridSize:     4,
			CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Index: idx,
		Cards: append([]models.Card(nil), b.cards...),
	}
}

// Seed writes the catalog through w.
func (c Catalog) Seed(ctx context.Context, w CatalogWriter) error {
	if err := w.PutCollection(ctx, c.Collection); err != nil {
		return err
	}
	if err := w.PutIndex(ctx, c.Index); err != nil {
		return err
	}
	for _, card := range c.Cards {
		if err := w.PutCard(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// Card returns the card with the given id or panics.
func (c Catalog) Card(cardID string) models.Card {
	for _, card := range c.Cards {
		if card.CardID == cardID {
			return card
		}
	}
	panic("testutil: unknown card " + cardID)
}
