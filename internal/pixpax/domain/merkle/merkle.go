// Package merkle computes content-only card hashes and the ordered Merkle
// commitments over them.
//
// Node hashes are SHA-256 over the canonical JSON {"left":L,"right":R}. A level
// with an odd number of nodes pairs its last node with itself. An empty list
// hashes the canonical encoding of [] and a single leaf is its own root.
package merkle

import (
	"fmt"

	"pixpax/internal/pixpax/models"
	"pixpax/pkg/canonical"
)

type cardHashInput struct {
	CollectionID      string               `json:"collectionId"`
	CollectionVersion string               `json:"collectionVersion"`
	CardID            string               `json:"cardId"`
	RenderPayload     models.RenderPayload `json:"renderPayload"`
}

type node struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type commitment struct {
	ItemHashes []string `json:"itemHashes"`
	Count      int      `json:"count"`
	PackRoot   string   `json:"packRoot"`
}

// HashCard returns the identity hash of a card's render payload within its
// collection version.
func HashCard(collectionID, collectionVersion, cardID string, payload models.RenderPayload) string {
	return mustHash(cardHashInput{
		CollectionID:      collectionID,
		CollectionVersion: collectionVersion,
		CardID:            cardID,
		RenderPayload:     payload,
	})
}

// Root returns the Merkle root of the ordered item hashes.
func Root(itemHashes []string) string {
	if len(itemHashes) == 0 {
		return mustHash([]string{})
	}
	level := append([]string(nil), itemHashes...)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// ContentsCommitment binds item hashes, count and root into one digest.
func ContentsCommitment(itemHashes []string, packRoot string) string {
	hashes := itemHashes
	if hashes == nil {
		hashes = []string{}
	}
	return mustHash(commitment{ItemHashes: hashes, Count: len(hashes), PackRoot: packRoot})
}

// Prove returns the inclusion path for the leaf at index.
func Prove(itemHashes []string, index int) ([]models.ProofStep, error) {
	if index < 0 || index >= len(itemHashes) {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", index, len(itemHashes))
	}
	proof := []models.ProofStep{}
	level := append([]string(nil), itemHashes...)
	for len(level) > 1 {
		if index%2 == 0 {
			sibling := index + 1
			if sibling >= len(level) {
				sibling = index
			}
			proof = append(proof, models.ProofStep{Hash: level[sibling], Position: models.ProofRight})
		} else {
			proof = append(proof, models.ProofStep{Hash: level[index-1], Position: models.ProofLeft})
		}
		level = nextLevel(level)
		index /= 2
	}
	return proof, nil
}

// VerifyProof folds the proof over leaf and compares with root.
func VerifyProof(leaf string, proof []models.ProofStep, root string) bool {
	current := leaf
	for _, step := range proof {
		switch step.Position {
		case models.ProofLeft:
			current = HashNode(step.Hash, current)
		case models.ProofRight:
			current = HashNode(current, step.Hash)
		default:
			return false
		}
	}
	return current == root
}

// HashNode hashes one internal node.
func HashNode(left, right string) string {
	return mustHash(node{Left: left, Right: right})
}

func nextLevel(level []string) []string {
	next := make([]string, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, HashNode(level[i], right))
	}
	return next
}

// mustHash panics only if a fixed, JSON-safe struct fails to encode.
func mustHash(v any) string {
	h, err := canonical.HashHex(v)
	if err != nil {
		panic(fmt.Sprintf("merkle: canonical hash: %v", err))
	}
	return h
}
