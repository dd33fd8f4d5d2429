// Package claims stores weekly issuance claims with insert-if-absent
// semantics. The first writer for a key wins; later writers get the winner.
package claims

import (
	"context"

	"pixpax/internal/pixpax/models"
)

// Store is implemented by every claim backend.
type Store interface {
	Get(ctx context.Context, key models.ClaimKey) (*models.IssuanceClaim, error)
	InsertIfAbsent(ctx context.Context, claim models.IssuanceClaim) (bool, *models.IssuanceClaim, error)
}
