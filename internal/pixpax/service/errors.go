package service

import (
	"errors"

	"pixpax/internal/pixpax/domain/policy"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/sentinel"
)

// Rejection reasons carried on domain errors.
const (
	ReasonMissingUserKey           = "missing-user-key"
	ReasonMissingScope             = "missing-collection-scope"
	ReasonAdminRequired            = "admin-required"
	ReasonInvalidPolicyCombination = "invalid-policy-combination"
	ReasonDevUntrackedDisabled     = "dev-untracked-disabled"
	ReasonInvalidPackCount         = "invalid-default-pack-count"
	ReasonAllSeriesRetired         = "all-series-retired"
	ReasonIndexHasNoCards          = "index-has-no-cards"
	ReasonContentMissing           = "collection-content-missing"
	ReasonInvalidCodeKind          = "invalid-code-kind"
	ReasonUnknownCard              = "unknown-card"
	ReasonUnknownSeries            = "unknown-series"
	ReasonCodeNotFound             = "code-not-found"
	ReasonInvalidCollectorKey      = "invalid-collector-key"
	ReasonMissingToken             = "missing-token"
)

// Redeem outcomes returned as values.
const (
	ReasonTokenCodeMismatch      = "token-code-mismatch"
	ReasonCodeRevoked            = "code-revoked"
	ReasonCollectorProofInvalid  = "collector-proof-invalid"
	ReasonCollectorProofRequired = "collector-proof-required"
)

func policyError(err error) error {
	switch {
	case errors.Is(err, policy.ErrInvalidPolicyCombination):
		return dErrors.NewReason(dErrors.CodeBadRequest, ReasonInvalidPolicyCombination, err.Error())
	case errors.Is(err, policy.ErrDevUntrackedDisabled):
		return dErrors.NewReason(dErrors.CodeForbidden, ReasonDevUntrackedDisabled, err.Error())
	case errors.Is(err, policy.ErrInvalidCount):
		return dErrors.NewReason(dErrors.CodeInternal, ReasonInvalidPackCount, err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "resolve issuance policy")
}

// storeError translates a store sentinel into a domain error exactly once.
func storeError(err error, notFoundReason, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return &dErrors.Error{Code: dErrors.CodeNotFound, Reason: notFoundReason, Message: msg, Err: err}
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeValidation, msg)
	case errors.Is(err, sentinel.ErrAlreadyExists), errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
