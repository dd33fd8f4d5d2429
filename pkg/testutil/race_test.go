package testutil

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRace(t *testing.T) {
	var taken atomic.Bool
	boom := errors.New("boom")
	res := Race(10, func(i int) (bool, error) {
		if i == 0 {
			return false, boom
		}
		return taken.CompareAndSwap(false, true), nil
	})
	assert.Equal(t, 1, res.Winners)
	assert.Equal(t, 8, res.Losers)
	assert.Equal(t, []error{boom}, res.Errors)
}
