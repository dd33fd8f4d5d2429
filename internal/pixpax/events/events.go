// Package events defines the domain event stream emitted on collection,
// pack and redeem code lifecycle changes.
package events

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pixpax/pkg/canonical"
	"pixpax/pkg/platform/sentinel"
)

// Type names an event.
type Type string

const (
	CollectionCreated Type = "collection.created"
	SeriesRetired     Type = "series.retired"
	PackIssued        Type = "pack.issued"
	PackClaimed       Type = "pack.claimed"
	CodeMinted        Type = "code.minted"
	CodeRedeemed      Type = "code.redeemed"
	CodeRevoked       Type = "code.revoked"
)

// DefaultSource identifies events produced by this service.
const DefaultSource = "pixpax-api"

var requiredFields = map[Type][]string{
	CollectionCreated: {"collectionId", "version"},
	SeriesRetired:     {"collectionId", "version", "seriesId"},
	PackIssued:        {"packId", "collectionId", "version", "issuedTo", "dropId"},
	PackClaimed:       {"packId", "codeId", "collectionId", "version"},
	CodeMinted:        {"codeId", "collectionId", "version", "kind"},
	CodeRedeemed:      {"codeId", "packId", "tokenHash"},
	CodeRevoked:       {"codeId", "reason"},
}

// ErrInvalidEvent wraps every validation failure.
var ErrInvalidEvent = fmt.Errorf("invalid event: %w", sentinel.ErrInvalidInput)

// Event is an immutable, self-identifying record. EventID is the canonical
// hash of the other fields.
type Event struct {
	EventID    string          `json:"eventId"`
	Type       Type            `json:"type"`
	OccurredAt string          `json:"occurredAt"`
	Source     string          `json:"source"`
	Nonce      string          `json:"nonce"`
	Payload    json.RawMessage `json:"payload"`
}

type idInput struct {
	Type       Type            `json:"type"`
	OccurredAt string          `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
	Source     string          `json:"source"`
	Nonce      string          `json:"nonce"`
}

// AggregateType is the entity kind an event is about: "collection",
// "pack" or "code".
func (t Type) AggregateType() string {
	before, _, _ := strings.Cut(string(t), ".")
	if before == "series" {
		return "collection"
	}
	return before
}

// New builds and validates an event. payload must encode to a JSON object
// holding every field required for typ.
func New(typ Type, occurredAt time.Time, payload any) (Event, error) {
	return NewFrom(typ, DefaultSource, occurredAt, payload)
}

func NewFrom(typ Type, source string, occurredAt time.Time, payload any) (Event, error) {
	raw, err := canonical.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return Event{}, fmt.Errorf("event nonce: %w", err)
	}
	e := Event{
		Type:       typ,
		OccurredAt: occurredAt.UTC().Format(time.RFC3339Nano),
		Source:     source,
		Nonce:      hex.EncodeToString(nonce),
		Payload:    raw,
	}
	if err := e.validateFields(); err != nil {
		return Event{}, err
	}
	if e.EventID, err = e.computeID(); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (e Event) computeID() (string, error) {
	return canonical.HashHex(idInput{
		Type:       e.Type,
		OccurredAt: e.OccurredAt,
		Payload:    e.Payload,
		Source:     e.Source,
		Nonce:      e.Nonce,
	})
}

// Validate checks required fields and that EventID matches the content.
func (e Event) Validate() error {
	if err := e.validateFields(); err != nil {
		return err
	}
	id, err := e.computeID()
	if err != nil {
		return err
	}
	if id != e.EventID {
		return fmt.Errorf("%w: event id does not match content", ErrInvalidEvent)
	}
	return nil
}

func (e Event) validateFields() error {
	required, ok := requiredFields[e.Type]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.Source == "" || e.Nonce == "" || e.OccurredAt == "" {
		return fmt.Errorf("%w: source, nonce and occurredAt are required", ErrInvalidEvent)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.OccurredAt); err != nil {
		return fmt.Errorf("%w: occurredAt: %v", ErrInvalidEvent, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(e.Payload, &fields); err != nil {
		return fmt.Errorf("%w: payload must be an object", ErrInvalidEvent)
	}
	for _, f := range required {
		if s, ok := fields[f].(string); !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: %s requires %s", ErrInvalidEvent, e.Type, f)
		}
	}
	return nil
}

// AggregateID returns the id of the entity the event is about.
func (e Event) AggregateID() string {
	var fields map[string]any
	_ = json.Unmarshal(e.Payload, &fields)
	key := map[string]string{"pack": "packId", "code": "codeId", "collection": "collectionId"}[e.Type.AggregateType()]
	s, _ := fields[key].(string)
	return s
}
