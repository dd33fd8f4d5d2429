package validation

import (
	dErrors "pixpax/pkg/domain-errors"
)

// Request body ceilings enforced by request.BodyLimit.
const (
	MaxBodySize     int64 = 64 << 10
	MaxSeedBodySize int64 = 8 << 20
)

// Field ceilings.
const (
	MaxIDLength        = 128
	MaxNameLength      = 256
	MaxUserKeyLength   = 256
	MaxTokenLength     = 2048
	MaxPEMLength       = 4096
	MaxSignatureLength = 512
	MaxReasonLength    = 500
	MaxSeedCards       = 5000
)

func CheckSliceCount(field string, n, limit int) error {
	if n <= limit {
		return nil
	}
	return dErrors.Newf(dErrors.CodeValidation, "too many %s: max %d allowed", field, limit)
}

func CheckStringLength(field, value string, limit int) error {
	if len(value) <= limit {
		return nil
	}
	return dErrors.Newf(dErrors.CodeValidation, "%s exceeds max length of %d", field, limit)
}
