package handler

import (
	"strings"
	"time"

	"pixpax/internal/pixpax/models"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/validation"
)

type issuePackRequest struct {
	UserKey      string `json:"userKey" validate:"required,notblank,max=256"`
	DropID       string `json:"dropId,omitempty" validate:"omitempty,max=128"`
	Count        *int   `json:"count,omitempty"`
	Override     bool   `json:"override,omitempty"`
	DevUntracked bool   `json:"devUntracked,omitempty"`
}

func (r *issuePackRequest) Normalize() {
	r.UserKey = strings.TrimSpace(r.UserKey)
	r.DropID = strings.TrimSpace(r.DropID)
}

func (r *issuePackRequest) Validate() error {
	return validation.Validate(r)
}

type mintCodeRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=pack fixed-card"`
	CardID     string `json:"cardId,omitempty" validate:"required_if=Kind fixed-card,max=128"`
	DropID     string `json:"dropId,omitempty" validate:"omitempty,max=128"`
	Count      *int   `json:"count,omitempty" validate:"omitempty,min=1,max=50"`
	TTLSeconds int64  `json:"ttlSeconds,omitempty" validate:"omitempty,min=60"`
}

func (r *mintCodeRequest) Normalize() {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.CardID = strings.TrimSpace(r.CardID)
	r.DropID = strings.TrimSpace(r.DropID)
}

func (r *mintCodeRequest) Validate() error {
	return validation.Validate(r)
}

func (r *mintCodeRequest) toModel(collectionID, version string) models.MintRequest {
	return models.MintRequest{
		CollectionID: collectionID,
		Version:      version,
		Kind:         models.CodeKind(r.Kind),
		CardID:       r.CardID,
		DropID:       r.DropID,
		Count:        r.Count,
		TTL:          time.Duration(r.TTLSeconds) * time.Second,
	}
}

type redeemRequest struct {
	Token           string `json:"token" validate:"required,max=2048"`
	CollectorPubKey string `json:"collectorPubKey" validate:"required,max=4096"`
	CollectorSig    string `json:"collectorSig,omitempty" validate:"omitempty,max=512"`
}

func (r *redeemRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
	r.CollectorSig = strings.TrimSpace(r.CollectorSig)
}

func (r *redeemRequest) Validate() error {
	return validation.Validate(r)
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

func (r *reasonRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *reasonRequest) Validate() error {
	return validation.Validate(r)
}

type seedRequest models.SeedRequest

func (r *seedRequest) Normalize() {
	r.Collection.CollectionID = strings.TrimSpace(r.Collection.CollectionID)
	r.Collection.Version = strings.TrimSpace(r.Collection.Version)
}

func (r *seedRequest) Validate() error {
	if !validation.ValidID(r.Collection.CollectionID) || !validation.ValidID(r.Collection.Version) {
		return dErrors.New(dErrors.CodeValidation, "collection id and version must be letters, digits, '-', '_' or '.'")
	}
	if err := validation.CheckStringLength("name", r.Collection.Name, validation.MaxNameLength); err != nil {
		return err
	}
	for _, card := range r.Cards {
		if !validation.ValidID(card.CardID) {
			return dErrors.New(dErrors.CodeValidation, "card ids must be letters, digits, '-', '_' or '.'")
		}
	}
	return validation.CheckSliceCount("cards", len(r.Cards), validation.MaxSeedCards)
}

// redeemFailure is the body of a redemption rejected by value.
type redeemFailure struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}
