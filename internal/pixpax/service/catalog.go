package service

import (
	"context"
	"slices"
	"strings"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/models"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/middleware/requesttime"
)

// SeedCollection publishes a collection version. Documents that already
// exist are left untouched, so seeding is safe to repeat.
func (s *Service) SeedCollection(ctx context.Context, req models.SeedRequest) (*models.SeedResult, error) {
	collectionID, version := req.Collection.CollectionID, req.Collection.Version
	if req.Index.CollectionID != collectionID || req.Index.Version != version {
		return nil, dErrors.NewReason(dErrors.CodeValidation, ReasonMissingScope, "index scope must match the collection")
	}
	for _, card := range req.Cards {
		if card.CollectionID != collectionID || card.Version != version {
			return nil, dErrors.NewReason(dErrors.CodeValidation, ReasonMissingScope, "card scope must match the collection")
		}
		if _, ok := req.Index.CardMap[card.CardID]; !ok {
			return nil, dErrors.NewReason(dErrors.CodeValidation, ReasonUnknownCard, "card "+card.CardID+" is not listed in the index")
		}
	}

	now := requesttime.Now(ctx).UTC()
	collection := req.Collection
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = now
	}
	result := &models.SeedResult{CollectionID: collectionID, Version: version}
	var err error
	if result.CollectionCreated, err = s.content.PutCollectionIfAbsent(ctx, collection); err != nil {
		return nil, storeError(err, "", "write collection")
	}
	if result.IndexCreated, err = s.content.PutIndexIfAbsent(ctx, req.Index); err != nil {
		return nil, storeError(err, "", "write index")
	}
	for _, card := range req.Cards {
		created, err := s.content.PutCardIfAbsent(ctx, card)
		if err != nil {
			return nil, storeError(err, "", "write card "+card.CardID)
		}
		if created {
			result.CardsCreated++
		} else {
			result.CardsExisting++
		}
	}

	if result.CollectionCreated {
		s.emit(ctx, events.CollectionCreated, now, events.CollectionCreatedPayload{
			CollectionID: collectionID,
			Version:      version,
			Name:         collection.Name,
			CardCount:    len(req.Index.Cards),
			SeriesCount:  len(req.Index.Series),
		})
	}
	s.logger.InfoContext(ctx, "collection seeded",
		"collection_id", collectionID,
		"version", version,
		"cards_created", result.CardsCreated,
	)
	return result, nil
}

// RetireSeries excludes a series from future draws. Packs already issued
// keep verifying; retiring twice keeps the first marker.
func (s *Service) RetireSeries(ctx context.Context, collectionID, version, seriesID, reason string) (*models.RetireResult, error) {
	seriesID = strings.TrimSpace(seriesID)
	if strings.TrimSpace(collectionID) == "" || strings.TrimSpace(version) == "" || seriesID == "" {
		return nil, dErrors.NewReason(dErrors.CodeBadRequest, ReasonMissingScope, "collectionId, version and seriesId are required")
	}
	index, err := s.content.GetIndex(ctx, collectionID, version)
	if err != nil {
		return nil, storeError(err, ReasonContentMissing, "load collection index")
	}
	if !declaresSeries(index, seriesID) {
		return nil, dErrors.NewReason(dErrors.CodeNotFound, ReasonUnknownSeries, "series is not part of the collection")
	}

	now := requesttime.Now(ctx).UTC()
	created, err := s.content.RetireSeries(ctx, collectionID, version, models.RetiredSeries{
		SeriesID:  seriesID,
		RetiredAt: now,
		Reason:    reason,
	})
	if err != nil {
		return nil, storeError(err, "", "write retirement marker")
	}
	if created {
		s.emit(ctx, events.SeriesRetired, now, events.SeriesRetiredPayload{
			CollectionID: collectionID,
			Version:      version,
			SeriesID:     seriesID,
			Reason:       reason,
		})
	}
	return &models.RetireResult{
		CollectionID: collectionID,
		Version:      version,
		SeriesID:     seriesID,
		RetiredAt:    now,
		Created:      created,
	}, nil
}

func declaresSeries(index *models.Index, seriesID string) bool {
	if slices.ContainsFunc(index.Series, func(s models.Series) bool { return s.SeriesID == seriesID }) {
		return true
	}
	for _, ref := range index.CardMap {
		if ref.SeriesID == seriesID {
			return true
		}
	}
	return false
}
