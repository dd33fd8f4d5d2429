package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixpax/internal/pixpax/models"
	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/platform/sentinel"
	"pixpax/pkg/testutil"
)

type ContentStoreSuite struct {
	suite.Suite
	ctx     context.Context
	gw      *objectstore.Memory
	store   *Store
	catalog testutil.Catalog
}

func TestContentStoreSuite(t *testing.T) {
	suite.Run(t, new(ContentStoreSuite))
}

func (s *ContentStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.gw = objectstore.NewMemory()
	s.store = New(s.gw, "")
	s.catalog = testutil.NewCatalogBuilder().WithSeries("s1", 2).Build()
	s.Require().NoError(s.catalog.Seed(s.ctx, s.store))
}

func (s *ContentStoreSuite) TestReadBack() {
	c, err := s.store.GetCollection(s.ctx, "c", "v1")
	s.Require().NoError(err)
	s.Equal("Test collection", c.Name)

	idx, err := s.store.GetIndex(s.ctx, "c", "v1")
	s.Require().NoError(err)
	s.Equal([]string{"s1-card1", "s1-card2"}, idx.Cards)

	card, err := s.store.GetCard(s.ctx, "c", "v1", "s1-card2")
	s.Require().NoError(err)
	s.Equal("grid-s1-card2", card.RenderPayload.GridB64)
}

func (s *ContentStoreSuite) TestKeyLayout() {
	keys, err := s.gw.List(s.ctx, DefaultPrefix+"/c/v1/")
	s.Require().NoError(err)
	s.Equal([]string{
		"pixpax/collections/c/v1/cards/s1-card1.json",
		"pixpax/collections/c/v1/cards/s1-card2.json",
		"pixpax/collections/c/v1/collection.json",
		"pixpax/collections/c/v1/index.json",
	}, keys)
}

func (s *ContentStoreSuite) TestNotFound() {
	_, err := s.store.GetCard(s.ctx, "c", "v1", "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetIndex(s.ctx, "c", "v2")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetCollection(s.ctx, "x", "v1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContentStoreSuite) TestPutIfAbsentIsWriteOnce() {
	card := s.catalog.Card("s1-card1")
	card.RenderPayload.GridB64 = "changed"
	created, err := s.store.PutCardIfAbsent(s.ctx, card)
	s.Require().NoError(err)
	s.False(created)

	got, err := s.store.GetCard(s.ctx, "c", "v1", "s1-card1")
	s.Require().NoError(err)
	s.Equal("grid-s1-card1", got.RenderPayload.GridB64)
}

func (s *ContentStoreSuite) TestRetiredSeries() {
	ids, err := s.store.RetiredSeries(s.ctx, "c", "v1")
	s.Require().NoError(err)
	s.Empty(ids)

	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	created, err := s.store.RetireSeries(s.ctx, "c", "v1", models.RetiredSeries{SeriesID: "s1", RetiredAt: at})
	s.Require().NoError(err)
	s.True(created)
	created, err = s.store.RetireSeries(s.ctx, "c", "v1", models.RetiredSeries{SeriesID: "s1", RetiredAt: at.Add(time.Hour)})
	s.Require().NoError(err)
	s.False(created)

	ids, err = s.store.RetiredSeries(s.ctx, "c", "v1")
	s.Require().NoError(err)
	s.Equal([]string{"s1"}, ids)
}

func (s *ContentStoreSuite) TestValidation() {
	s.Run("card without grid size", func() {
		card := s.catalog.Card("s1-card1")
		card.RenderPayload.GridSize = 0
		s.ErrorIs(s.store.PutCard(s.ctx, card), sentinel.ErrInvalidInput)
	})

	s.Run("card id with separator", func() {
		card := s.catalog.Card("s1-card1")
		card.CardID = "../x"
		s.ErrorIs(s.store.PutCard(s.ctx, card), ErrInvalidDocument)
	})

	s.Run("index card without series", func() {
		idx := s.catalog.Index
		idx.Cards = append([]string{"orphan"}, idx.Cards...)
		s.ErrorIs(s.store.PutIndex(s.ctx, idx), ErrInvalidDocument)
	})

	s.Run("index card in undeclared series", func() {
		idx := models.Index{
			CollectionID: "c", Version: "v1",
			Series:  []models.Series{{SeriesID: "s1"}},
			Cards:   []string{"a"},
			CardMap: map[string]models.CardRef{"a": {SeriesID: "s2"}},
		}
		s.ErrorIs(s.store.PutIndex(s.ctx, idx), ErrInvalidDocument)
	})

	s.Run("index without declared series accepts any", func() {
		idx := models.Index{
			CollectionID: "c", Version: "v9",
			Cards:   []string{"a"},
			CardMap: map[string]models.CardRef{"a": {SeriesID: "free"}},
		}
		s.NoError(s.store.PutIndex(s.ctx, idx))
	})
}
