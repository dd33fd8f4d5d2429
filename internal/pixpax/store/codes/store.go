// Package codes persists redeem codes. A code moves from active to claimed
// exactly once, or from active to revoked; both are terminal.
package codes

import (
	"context"
	"fmt"
	"time"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/sentinel"
)

var (
	// ErrAlreadyClaimed is returned when revoking a claimed code.
	ErrAlreadyClaimed = fmt.Errorf("redeem code already claimed: %w", sentinel.ErrAlreadyUsed)
	// ErrDuplicateCode is returned when a code id or token hash already exists.
	ErrDuplicateCode = fmt.Errorf("redeem code exists: %w", sentinel.ErrAlreadyExists)
)

// Store is implemented by every code backend.
type Store interface {
	Create(ctx context.Context, code *models.RedeemCode) error
	FindByID(ctx context.Context, codeID string) (*models.RedeemCode, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.RedeemCode, error)
	// Claim atomically moves an active code to claimed. When the code is not
	// active it returns the stored record unchanged and won=false.
	Claim(ctx context.Context, codeID string, claim models.CodeClaim) (code *models.RedeemCode, won bool, err error)
	// Revoke moves an active code to revoked. Revoking a revoked code returns
	// it unchanged; revoking a claimed code fails with ErrAlreadyClaimed.
	Revoke(ctx context.Context, codeID, reason string, at time.Time) (*models.RedeemCode, error)
}

func applyClaim(code *models.RedeemCode, claim models.CodeClaim) bool {
	if code.Status != models.CodeStatusActive {
		return false
	}
	c := claim
	code.Status = models.CodeStatusClaimed
	code.Claim = &c
	return true
}

func applyRevoke(code *models.RedeemCode, reason string, at time.Time) (changed bool, err error) {
	switch code.Status {
	case models.CodeStatusRevoked:
		return false, nil
	case models.CodeStatusClaimed:
		return false, ErrAlreadyClaimed
	}
	t := at.UTC()
	code.Status = models.CodeStatusRevoked
	code.RevokedAt = &t
	code.RevokedReason = reason
	return true, nil
}
