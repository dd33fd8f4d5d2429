package claims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
)

// PostgresStore persists claims in the issuance_claims table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key models.ClaimKey) (*models.IssuanceClaim, error) {
	query := `
		SELECT collection_id, version, drop_id, issued_to, created_at, response
		FROM issuance_claims
		WHERE collection_id = $1 AND version = $2 AND drop_id = $3 AND issued_to = $4
	`
	var claim models.IssuanceClaim
	var response []byte
	err := s.db.QueryRowContext(ctx, query, key.CollectionID, key.Version, key.DropID, key.IssuedTo).
		Scan(&claim.CollectionID, &claim.Version, &claim.DropID, &claim.IssuedTo, &claim.CreatedAt, &response)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find issuance claim: %w", err)
	}
	claim.Response = response
	return &claim, nil
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, claim models.IssuanceClaim) (bool, *models.IssuanceClaim, error) {
	query := `
		INSERT INTO issuance_claims (collection_id, version, drop_id, issued_to, created_at, response)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (collection_id, version, drop_id, issued_to) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		claim.CollectionID, claim.Version, claim.DropID, claim.IssuedTo, claim.CreatedAt, []byte(claim.Response))
	if err != nil {
		return false, nil, fmt.Errorf("insert issuance claim: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("insert issuance claim rows: %w", err)
	}
	if rows == 1 {
		return true, nil, nil
	}
	existing, err := s.Get(ctx, claim.Key())
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

var _ Store = (*PostgresStore)(nil)
