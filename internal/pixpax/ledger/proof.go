package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"pixpax/pkg/platform/sentinel"
)

// Receipt proof failure reasons.
const (
	ReasonMissingSegmentKey       = "missing-segment-key"
	ReasonSegmentIntegrity        = "segment-integrity-error"
	ReasonSegmentNotReachable     = "segment-not-reachable-from-head"
	ReasonCheckpointHeadMismatch  = "checkpoint-head-mismatch"
	ReasonPrevSegmentHashMismatch = "prev-segment-hash-mismatch"
	ReasonPrevSegmentKeyMismatch  = "prev-segment-key-mismatch"
	ReasonPackEventNotInSegment   = "pack-event-not-in-segment"
)

// ReceiptProof shows that a pack's entry sits in a segment reachable from
// the current checkpoint head through an unbroken hash chain.
type ReceiptProof struct {
	OK                 bool            `json:"ok"`
	Reason             string          `json:"reason,omitempty"`
	PackID             string          `json:"packId,omitempty"`
	SegmentKey         string          `json:"segmentKey,omitempty"`
	SegmentHash        string          `json:"segmentHash,omitempty"`
	EntryID            string          `json:"entryId,omitempty"`
	Entry              json.RawMessage `json:"entry,omitempty"`
	Checkpoint         *Checkpoint     `json:"checkpoint,omitempty"`
	ChainDepthFromHead int             `json:"chainDepthFromHead"`
}

// ProveReceipt walks back from the head to segmentKey and returns the entry
// recorded for packID. Chain and integrity failures are reported as values;
// the error is reserved for storage failures.
func (l *Ledger) ProveReceipt(ctx context.Context, segmentKey, packID string) (ReceiptProof, error) {
	segmentKey = strings.TrimSpace(segmentKey)
	if segmentKey == "" {
		return ReceiptProof{Reason: ReasonMissingSegmentKey, PackID: packID}, nil
	}
	cp, err := l.Checkpoint(ctx)
	if err != nil {
		return ReceiptProof{}, err
	}
	fail := func(reason string) (ReceiptProof, error) {
		return ReceiptProof{Reason: reason, PackID: packID, SegmentKey: segmentKey, Checkpoint: &cp}, nil
	}

	var chain []*Segment
	seen := map[string]bool{}
	cursor := cp.HeadSegmentKey
	for cursor != "" && !seen[cursor] {
		seen[cursor] = true
		seg, err := l.ReadSegment(ctx, cursor)
		if err != nil {
			if errors.Is(err, ErrSegmentIntegrity) || errors.Is(err, ErrMalformedSegment) {
				return fail(ReasonSegmentIntegrity)
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				break
			}
			return ReceiptProof{}, err
		}
		chain = append(chain, seg)
		if cursor == segmentKey {
			break
		}
		if seg.Meta.PrevSegmentKey == nil {
			break
		}
		cursor = *seg.Meta.PrevSegmentKey
	}

	if len(chain) == 0 || chain[len(chain)-1].Key != segmentKey {
		return fail(ReasonSegmentNotReachable)
	}
	if chain[0].Hash != cp.HeadSegmentHash || chain[0].Key != cp.HeadSegmentKey {
		return fail(ReasonCheckpointHeadMismatch)
	}
	for i := 0; i < len(chain)-1; i++ {
		cur, parent := chain[i], chain[i+1]
		if deref(cur.Meta.PrevSegmentHash) != parent.Hash {
			return fail(ReasonPrevSegmentHashMismatch)
		}
		if deref(cur.Meta.PrevSegmentKey) != parent.Key {
			return fail(ReasonPrevSegmentKeyMismatch)
		}
	}

	target := chain[len(chain)-1]
	line, ok := target.Find(packID)
	if !ok {
		return fail(ReasonPackEventNotInSegment)
	}
	return ReceiptProof{
		OK:                 true,
		PackID:             packID,
		SegmentKey:         target.Key,
		SegmentHash:        target.Hash,
		EntryID:            line.EntryID,
		Entry:              line.Entry,
		Checkpoint:         &cp,
		ChainDepthFromHead: len(chain) - 1,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
