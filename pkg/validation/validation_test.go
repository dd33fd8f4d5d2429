package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pixpax/pkg/domain-errors"
)

type sample struct {
	CollectionID string `json:"collectionId" validate:"required,pixpaxid"`
	Kind         string `json:"kind" validate:"omitempty,oneof=pack fixed-card"`
	Count        *int   `json:"count,omitempty" validate:"omitempty,min=1,max=50"`
	Note         string `json:"note" validate:"omitempty,notblank"`
}

func TestValidate(t *testing.T) {
	count := 51
	tests := []struct {
		name string
		req  sample
		msg  string
	}{
		{"missing id", sample{}, "collectionId is required"},
		{"id with slash", sample{CollectionID: "a/b"}, "collectionId must be 1-128 characters of letters, digits, '-', '_' or '.'"},
		{"bad kind", sample{CollectionID: "c", Kind: "bundle"}, "kind must be one of [pack fixed-card]"},
		{"count too high", sample{CollectionID: "c", Count: &count}, "count must be at most 50"},
		{"blank note", sample{CollectionID: "c", Note: "   "}, "note must not be blank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			var de *dErrors.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.msg, de.Message)
		})
	}

	require.NoError(t, Validate(&sample{CollectionID: "pixel-heroes_v1.2"}))
}

func TestLimits(t *testing.T) {
	assert.NoError(t, CheckStringLength("token", "abc", 3))
	assert.Error(t, CheckStringLength("token", "abcd", 3))
	assert.NoError(t, CheckSliceCount("cards", 2, 2))
	assert.Error(t, CheckSliceCount("cards", 3, 2))
	assert.True(t, ValidID("v1"))
	assert.False(t, ValidID(""))
}
