// Package issuers resolves issuer and receipt key ids to public keys.
package issuers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"pixpax/internal/pixpax/signing"
)

// Status of an issuer key.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Issuer is one trusted signing key.
type Issuer struct {
	KeyID        string `yaml:"keyId" json:"keyId"`
	Name         string `yaml:"name" json:"name,omitempty"`
	Status       Status `yaml:"status" json:"status"`
	PublicKeyPEM string `yaml:"publicKeyPem" json:"publicKeyPem"`
}

// Resolver looks up an issuer by key id. Unknown ids return (nil, nil).
type Resolver interface {
	Resolve(ctx context.Context, keyID string) (*Issuer, error)
}

// ErrInvalidIssuer is returned for malformed registry entries.
var ErrInvalidIssuer = errors.New("invalid issuer entry")

// Registry is an in-memory Resolver.
type Registry struct {
	mu      sync.RWMutex
	issuers map[string]Issuer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{issuers: make(map[string]Issuer)}
}

// Add validates and stores an issuer. An empty key id is derived from the key;
// a supplied one must match.
func (r *Registry) Add(issuer Issuer) error {
	issuer.PublicKeyPEM = signing.NormalizePublicPEM(issuer.PublicKeyPEM)
	if _, err := signing.ParsePublicKey(issuer.PublicKeyPEM); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
	}
	derived := signing.KeyID(issuer.PublicKeyPEM)
	if issuer.KeyID == "" {
		issuer.KeyID = derived
	}
	if issuer.KeyID != derived {
		return fmt.Errorf("%w: %s", signing.ErrKeyIDMismatch, issuer.KeyID)
	}
	switch issuer.Status {
	case "":
		issuer.Status = StatusActive
	case StatusActive, StatusRevoked:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidIssuer, issuer.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.issuers[issuer.KeyID] = issuer
	return nil
}

// AddSigner registers the public half of a runtime signer as active.
func (r *Registry) AddSigner(s *signing.Signer, name string) error {
	return r.Add(Issuer{KeyID: s.KeyID(), Name: name, Status: StatusActive, PublicKeyPEM: s.PublicKeyPEM()})
}

// Revoke marks a key revoked.
func (r *Registry) Revoke(keyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	issuer, ok := r.issuers[keyID]
	if !ok {
		return false
	}
	issuer.Status = StatusRevoked
	r.issuers[keyID] = issuer
	return true
}

func (r *Registry) Resolve(_ context.Context, keyID string) (*Issuer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	issuer, ok := r.issuers[keyID]
	if !ok {
		return nil, nil
	}
	return &issuer, nil
}

// TrustedKeys returns active keys as keyId -> public PEM.
func (r *Registry) TrustedKeys() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.issuers))
	for id, issuer := range r.issuers {
		if issuer.Status == StatusActive {
			out[id] = issuer.PublicKeyPEM
		}
	}
	return out
}

// KeyIDs lists registered key ids in sorted order.
func (r *Registry) KeyIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.issuers))
	for id := range r.issuers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type registryFile struct {
	Issuers []Issuer `yaml:"issuers"`
}

// LoadYAML adds every issuer listed in a YAML registry file.
func (r *Registry) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read issuer registry: %w", err)
	}
	return r.ParseYAML(data)
}

// ParseYAML adds issuers from YAML bytes.
func (r *Registry) ParseYAML(data []byte) error {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse issuer registry: %w", err)
	}
	for i, issuer := range file.Issuers {
		if err := r.Add(issuer); err != nil {
			return fmt.Errorf("issuer %d: %w", i, err)
		}
	}
	return nil
}

// ParseTrustedJSON adds issuers from a {"keyId": "publicKeyPem"} object.
func (r *Registry) ParseTrustedJSON(data []byte) error {
	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("parse trusted keys: %w", err)
	}
	for keyID, pemText := range keys {
		if err := r.Add(Issuer{KeyID: keyID, PublicKeyPEM: pemText}); err != nil {
			return fmt.Errorf("trusted key %s: %w", keyID, err)
		}
	}
	return nil
}

var _ Resolver = (*Registry)(nil)
