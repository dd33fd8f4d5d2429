// Package policy decides how a single issuance request is handled: the weekly
// deterministic drop, an admin override, or an unsigned development pack.
//
// Resolution is pure. Storage is only touched through the two phases of the
// returned Policy: TryReuse before any draw, Finalize after signing.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/platform/middleware/requesttime"
	"pixpax/pkg/platform/sentinel"
)

const (
	// DefaultPackCount is used when the server has no configured default.
	DefaultPackCount = 5
	MinPackCount     = 1
	MaxPackCount     = 50
)

var (
	ErrInvalidPolicyCombination = errors.New("dev-untracked issuance cannot be combined with override")
	ErrDevUntrackedDisabled     = errors.New("dev-untracked pack issuance is disabled")
	ErrInvalidCount             = errors.New("default pack count must be between 1 and 50")
)

// ClaimStore is the idempotent record store for weekly claims.
type ClaimStore interface {
	Get(ctx context.Context, key models.ClaimKey) (*models.IssuanceClaim, error)
	InsertIfAbsent(ctx context.Context, claim models.IssuanceClaim) (bool, *models.IssuanceClaim, error)
}

// Policy is the two-phase hook pair of one issuance mode. A non-nil result
// from either phase replaces the caller's response.
type Policy interface {
	Mode() models.IssuanceMode
	TryReuse(ctx context.Context, key models.ClaimKey) (*models.PackResult, error)
	Finalize(ctx context.Context, key models.ClaimKey, result *models.PackResult) (*models.PackResult, error)
}

// Params are the request flags that select a policy.
type Params struct {
	WantsOverride     bool
	WantsDevUntracked bool
	AllowDevUntracked bool
	RequestedDropID   string
	RequestedCount    *int
	DefaultPackCount  int
	Now               time.Time
}

// Decision is the resolved issuance shape.
type Decision struct {
	Policy        Policy
	Mode          models.IssuanceMode
	DropID        string
	Count         int
	Override      bool
	Untracked     bool
	RequiresAdmin bool
}

// Resolve selects the policy for p. claims backs the weekly policy.
func Resolve(p Params, claims ClaimStore) (Decision, error) {
	if p.WantsDevUntracked && p.WantsOverride {
		return Decision{}, ErrInvalidPolicyCombination
	}
	defaultCount := p.DefaultPackCount
	if defaultCount == 0 {
		defaultCount = DefaultPackCount
	}
	if defaultCount < MinPackCount || defaultCount > MaxPackCount {
		return Decision{}, ErrInvalidCount
	}
	requestedDrop := strings.TrimSpace(p.RequestedDropID)

	if !p.WantsOverride && !p.WantsDevUntracked {
		dropID := requestedDrop
		if dropID == "" {
			dropID = ISOWeekDropID(p.Now)
		}
		return Decision{
			Policy: &Weekly{claims: claims, dropID: dropID},
			Mode:   models.ModeWeekly,
			DropID: dropID,
			Count:  defaultCount,
		}, nil
	}

	count := defaultCount
	if p.WantsOverride {
		count = DefaultPackCount
		if p.RequestedCount != nil {
			count = min(max(*p.RequestedCount, MinPackCount), MaxPackCount)
		}
	}

	if p.WantsDevUntracked {
		if !p.AllowDevUntracked {
			return Decision{}, ErrDevUntrackedDisabled
		}
		dropID := requestedDrop
		if dropID == "" {
			dropID = fmt.Sprintf("dev-%d", p.Now.UnixMilli())
		}
		return Decision{
			Policy:    CuratedRandom{mode: models.ModeDevUntracked},
			Mode:      models.ModeDevUntracked,
			DropID:    dropID,
			Count:     count,
			Untracked: true,
		}, nil
	}

	dropID := requestedDrop
	if dropID == "" {
		dropID = ISOWeekDropID(p.Now)
	}
	return Decision{
		Policy:        CuratedRandom{mode: models.ModeOverride},
		Mode:          models.ModeOverride,
		DropID:        dropID,
		Count:         count,
		Override:      true,
		RequiresAdmin: true,
	}, nil
}

// ISOWeekDropID formats t's ISO-8601 week in UTC as week-YYYY-Www.
func ISOWeekDropID(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("week-%d-W%02d", year, week)
}

// Weekly allows one signed pack per (collection, version, drop, user).
type Weekly struct {
	claims ClaimStore
	dropID string
}

func (w *Weekly) Mode() models.IssuanceMode { return models.ModeWeekly }

// TryReuse replays a stored claim with reused set.
func (w *Weekly) TryReuse(ctx context.Context, key models.ClaimKey) (*models.PackResult, error) {
	claim, err := w.claims.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read issuance claim: %w", err)
	}
	return w.replay(claim)
}

// Finalize records the claim. If another request won the insert, its
// response is replayed instead of result.
func (w *Weekly) Finalize(ctx context.Context, key models.ClaimKey, result *models.PackResult) (*models.PackResult, error) {
	response, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode claim response: %w", err)
	}
	created, existing, err := w.claims.InsertIfAbsent(ctx, models.IssuanceClaim{
		CollectionID: key.CollectionID,
		Version:      key.Version,
		DropID:       key.DropID,
		IssuedTo:     key.IssuedTo,
		CreatedAt:    requesttime.Now(ctx).UTC(),
		Response:     response,
	})
	if err != nil {
		return nil, fmt.Errorf("insert issuance claim: %w", err)
	}
	if created {
		return nil, nil
	}
	if existing == nil {
		existing, err = w.claims.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("re-read issuance claim: %w", err)
		}
	}
	return w.replay(existing)
}

func (w *Weekly) replay(claim *models.IssuanceClaim) (*models.PackResult, error) {
	if claim == nil || len(claim.Response) == 0 {
		return nil, nil
	}
	var result models.PackResult
	if err := json.Unmarshal(claim.Response, &result); err != nil {
		return nil, fmt.Errorf("decode claim response: %w", err)
	}
	result.Issuance = models.IssuanceInfo{
		Mode:     models.ModeWeekly,
		Reused:   true,
		Override: false,
		DropID:   w.dropID,
	}
	return &result, nil
}

// CuratedRandom covers override and dev-untracked issuance. It never reuses.
type CuratedRandom struct {
	mode models.IssuanceMode
}

func (c CuratedRandom) Mode() models.IssuanceMode { return c.mode }

func (CuratedRandom) TryReuse(context.Context, models.ClaimKey) (*models.PackResult, error) {
	return nil, nil
}

func (CuratedRandom) Finalize(context.Context, models.ClaimKey, *models.PackResult) (*models.PackResult, error) {
	return nil, nil
}

var (
	_ Policy = (*Weekly)(nil)
	_ Policy = CuratedRandom{}
)
