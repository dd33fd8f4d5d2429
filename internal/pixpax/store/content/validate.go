package content

import (
	"fmt"
	"strings"

	"pixpax/internal/pixpax/models"
)

func ValidateCollection(c models.Collection) error {
	if strings.TrimSpace(c.CollectionID) == "" || strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("%w: collectionId and version are required", ErrInvalidDocument)
	}
	if c.GridSize < 0 {
		return fmt.Errorf("%w: gridSize must not be negative", ErrInvalidDocument)
	}
	return nil
}

// ValidateIndex checks that every listed card maps to a series and, when
// series are declared, that the series is one of them.
func ValidateIndex(idx models.Index) error {
	if strings.TrimSpace(idx.CollectionID) == "" || strings.TrimSpace(idx.Version) == "" {
		return fmt.Errorf("%w: collectionId and version are required", ErrInvalidDocument)
	}
	seen := make(map[string]bool, len(idx.Cards))
	for _, cardID := range idx.Cards {
		if strings.TrimSpace(cardID) == "" {
			return fmt.Errorf("%w: empty card id in index", ErrInvalidDocument)
		}
		if seen[cardID] {
			return fmt.Errorf("%w: duplicate card id %q", ErrInvalidDocument, cardID)
		}
		seen[cardID] = true
		ref, ok := idx.CardMap[cardID]
		if !ok || strings.TrimSpace(ref.SeriesID) == "" {
			return fmt.Errorf("%w: card %q has no series", ErrInvalidDocument, cardID)
		}
		if !idx.SeriesDeclared(ref.SeriesID) {
			return fmt.Errorf("%w: card %q references undeclared series %q", ErrInvalidDocument, cardID, ref.SeriesID)
		}
	}
	return nil
}

func ValidateCard(c models.Card) error {
	switch {
	case strings.TrimSpace(c.CollectionID) == "", strings.TrimSpace(c.Version) == "":
		return fmt.Errorf("%w: collectionId and version are required", ErrInvalidDocument)
	case strings.TrimSpace(c.CardID) == "":
		return fmt.Errorf("%w: cardId is required", ErrInvalidDocument)
	case strings.ContainsAny(c.CardID, "/\\"):
		return fmt.Errorf("%w: cardId must not contain path separators", ErrInvalidDocument)
	case strings.TrimSpace(c.SeriesID) == "":
		return fmt.Errorf("%w: seriesId is required", ErrInvalidDocument)
	case c.RenderPayload.GridSize <= 0:
		return fmt.Errorf("%w: renderPayload.gridSize must be positive", ErrInvalidDocument)
	}
	return nil
}
