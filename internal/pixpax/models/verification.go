package models

// Verification failure reasons.
const (
	ReasonMissingPackID            = "missing-pack-id"
	ReasonMissingPackScope         = "missing-pack-scope"
	ReasonPackNotFound             = "pack-not-found"
	ReasonMissingCollectionScope   = "missing-collection-scope"
	ReasonMissingCardIDs           = "missing-card-ids"
	ReasonMissingItemHashes        = "missing-item-hashes"
	ReasonItemHashLengthMismatch   = "item-hash-length-mismatch"
	ReasonMissingPackRoot          = "missing-pack-root"
	ReasonMissingIndex             = "missing-index"
	ReasonCardMissingFromIndex     = "card-missing-from-index"
	ReasonCardMissingSeries        = "card-missing-series"
	ReasonCardSeriesNotDeclared    = "card-series-not-declared"
	ReasonCardContentMissing       = "card-content-missing"
	ReasonItemHashesMismatch       = "item-hashes-mismatch"
	ReasonPackRootMismatch         = "pack-root-mismatch"
	ReasonContentsCommitmentDiffer = "contents-commitment-mismatch"
	ReasonMissingIssuerKeyID       = "missing-issuer-key-id"
	ReasonMissingSignature         = "missing-signature"
	ReasonMissingIssuerAuthor      = "missing-issuer-author"
	ReasonIssuerKeyNotTrusted      = "issuer-key-not-trusted"
	ReasonSignatureInvalid         = "signature-invalid"
)

// SignatureSkippedUntracked is reported in place of true for untracked packs.
const SignatureSkippedUntracked = "skipped-untracked"

// VerificationChecks lists the checks that passed. Signature is either the
// boolean true or SignatureSkippedUntracked.
type VerificationChecks struct {
	Exists             bool `json:"exists"`
	SeriesReference    bool `json:"seriesReference"`
	ItemHashes         bool `json:"itemHashes"`
	MerkleRoot         bool `json:"merkleRoot"`
	ContentsCommitment bool `json:"contentsCommitment"`
	Signature          any  `json:"signature"`
}

// VerificationResult is the outcome of verifying a pack. Failures are values.
type VerificationResult struct {
	OK                bool                `json:"ok"`
	Reason            string              `json:"reason,omitempty"`
	Details           map[string]any      `json:"details,omitempty"`
	PackID            string              `json:"packId,omitempty"`
	CollectionID      string              `json:"collectionId,omitempty"`
	CollectionVersion string              `json:"collectionVersion,omitempty"`
	DropID            string              `json:"dropId,omitempty"`
	Checks            *VerificationChecks `json:"checks,omitempty"`
}

// Fail builds a failed result.
func Fail(reason string, details map[string]any) VerificationResult {
	if details == nil {
		details = map[string]any{}
	}
	return VerificationResult{Reason: reason, Details: details}
}

// ProofStep is one sibling on a Merkle inclusion path.
type ProofStep struct {
	Hash     string `json:"hash"`
	Position string `json:"position"`
}

// Proof positions.
const (
	ProofLeft  = "left"
	ProofRight = "right"
)
