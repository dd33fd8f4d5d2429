package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
)

const codeColumns = `
	code_id, token_hash, policy_hash, collection_id, version, kind, card_id, drop_id, count,
	status, mint_ref, issuer_key_id, issued_at, expires_at, revoked_at, revoked_reason,
	claim_pack_id, claim_collector_pub_key, claimed_at, claim_response`

// PostgresStore persists redeem codes in the redeem_codes table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed code store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, code *models.RedeemCode) error {
	if code == nil {
		return fmt.Errorf("redeem code is required: %w", sentinel.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO redeem_codes (code_id, token_hash, policy_hash, collection_id, version, kind,
			card_id, drop_id, count, status, mint_ref, issuer_key_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, code.CodeID, code.TokenHash, code.PolicyHash, code.CollectionID, code.Version, string(code.Kind),
		code.CardID, code.DropID, code.Count, string(code.Status), code.MintRef, code.IssuerKeyID,
		code.IssuedAt, code.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create redeem code: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, codeID string) (*models.RedeemCode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+codeColumns+` FROM redeem_codes WHERE code_id = $1`, codeID)
	return scanCode(row)
}

func (s *PostgresStore) FindByTokenHash(ctx context.Context, tokenHash string) (*models.RedeemCode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+codeColumns+` FROM redeem_codes WHERE token_hash = $1`, tokenHash)
	return scanCode(row)
}

func (s *PostgresStore) Claim(ctx context.Context, codeID string, claim models.CodeClaim) (*models.RedeemCode, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE redeem_codes
		SET status = 'claimed', claim_pack_id = $2, claim_collector_pub_key = $3, claimed_at = $4, claim_response = $5
		WHERE code_id = $1 AND status = 'active'
		RETURNING `+codeColumns,
		codeID, claim.PackID, claim.CollectorPubKey, claim.ClaimedAt, nullableJSON(claim.Response))
	code, err := scanCode(row)
	if err == nil {
		return code, true, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, fmt.Errorf("claim redeem code: %w", err)
	}
	existing, err := s.FindByID(ctx, codeID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Revoke locks the row so a concurrent claim cannot interleave.
func (s *PostgresStore) Revoke(ctx context.Context, codeID, reason string, at time.Time) (*models.RedeemCode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin revoke tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	code, err := scanCode(tx.QueryRowContext(ctx, `SELECT `+codeColumns+` FROM redeem_codes WHERE code_id = $1 FOR UPDATE`, codeID))
	if err != nil {
		return nil, err
	}
	changed, err := applyRevoke(code, reason, at)
	if err != nil {
		return code, err
	}
	if !changed {
		return code, nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE redeem_codes SET status = 'revoked', revoked_at = $2, revoked_reason = $3 WHERE code_id = $1
	`, codeID, code.RevokedAt, code.RevokedReason); err != nil {
		return nil, fmt.Errorf("revoke redeem code: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit revoke: %w", err)
	}
	return code, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*models.RedeemCode, error) {
	var (
		code                                models.RedeemCode
		kind, status                        string
		revokedAt, claimedAt                sql.NullTime
		revokedReason, packID, collectorKey sql.NullString
		response                            []byte
	)
	err := row.Scan(&code.CodeID, &code.TokenHash, &code.PolicyHash, &code.CollectionID, &code.Version,
		&kind, &code.CardID, &code.DropID, &code.Count, &status, &code.MintRef, &code.IssuerKeyID,
		&code.IssuedAt, &code.ExpiresAt, &revokedAt, &revokedReason, &packID, &collectorKey, &claimedAt, &response)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("redeem code not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan redeem code: %w", err)
	}
	code.Kind = models.CodeKind(kind)
	code.Status = models.CodeStatus(status)
	if revokedAt.Valid {
		t := revokedAt.Time
		code.RevokedAt = &t
	}
	code.RevokedReason = revokedReason.String
	if claimedAt.Valid {
		code.Claim = &models.CodeClaim{
			PackID:          packID.String,
			CollectorPubKey: collectorKey.String,
			ClaimedAt:       claimedAt.Time,
			Response:        response,
		}
	}
	return &code, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
