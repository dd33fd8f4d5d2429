// Package rng picks card indices for pack slots.
package rng

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// ErrOutOfRange is returned when a delegate yields an index outside [0, max).
var ErrOutOfRange = errors.New("rng value out of range")

// ErrInvalidBound is returned for a non-positive exclusive bound.
var ErrInvalidBound = errors.New("rng bound must be positive")

// SlotContext identifies the draw being made.
type SlotContext struct {
	CollectionID string
	Version      string
	DropID       string
	SlotIndex    int
	Count        int
}

// Source returns an integer in [0, maxExclusive).
type Source interface {
	NextInt(maxExclusive int, slot SlotContext) (int, error)
}

// Crypto draws uniformly from crypto/rand and ignores the slot context.
type Crypto struct{}

// NewCrypto returns the production source.
func NewCrypto() Crypto {
	return Crypto{}
}

func (Crypto) NextInt(maxExclusive int, _ SlotContext) (int, error) {
	if maxExclusive <= 0 {
		return 0, ErrInvalidBound
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxExclusive)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(n.Int64()), nil
}

// DelegateFunc decides the index for a slot.
type DelegateFunc func(maxExclusive int, slot SlotContext) int

// Delegate forwards each draw to a caller-supplied function and range-checks
// the answer. Used for deterministic replay.
type Delegate struct {
	fn DelegateFunc
}

// NewDelegate wraps fn.
func NewDelegate(fn DelegateFunc) *Delegate {
	return &Delegate{fn: fn}
}

// Fixed returns a delegate that always answers n.
func Fixed(n int) *Delegate {
	return NewDelegate(func(int, SlotContext) int { return n })
}

// Sequence returns a delegate that answers values in order, repeating the last.
func Sequence(values ...int) *Delegate {
	i := 0
	return NewDelegate(func(int, SlotContext) int {
		if len(values) == 0 {
			return 0
		}
		v := values[min(i, len(values)-1)]
		i++
		return v
	})
}

func (d *Delegate) NextInt(maxExclusive int, slot SlotContext) (int, error) {
	if maxExclusive <= 0 {
		return 0, ErrInvalidBound
	}
	v := d.fn(maxExclusive, slot)
	if v < 0 || v >= maxExclusive {
		return 0, fmt.Errorf("%w: %d not in [0,%d) for slot %d", ErrOutOfRange, v, maxExclusive, slot.SlotIndex)
	}
	return v, nil
}

var (
	_ Source = Crypto{}
	_ Source = (*Delegate)(nil)
)
