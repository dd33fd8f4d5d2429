package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/canonical"
)

type LedgerSuite struct {
	suite.Suite
	ctx   context.Context
	gw    *objectstore.Memory
	clock time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.gw = objectstore.NewMemory()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *LedgerSuite) newLedger(opts ...Option) *Ledger {
	opts = append([]Option{WithClock(func() time.Time { return s.clock })}, opts...)
	return New(s.gw, "", opts...)
}

func entry(packID string) map[string]any {
	return map[string]any{"kind": "pack.issued", "payload": map[string]any{"packId": packID}}
}

func (s *LedgerSuite) TestSyncAppendWritesSegment() {
	l := s.newLedger()

	ref, err := l.AppendReceipt(s.ctx, "p1", entry("p1"))
	s.Require().NoError(err)
	s.False(ref.Queued)
	s.True(strings.HasPrefix(ref.SegmentKey, "pixpax/ledger/segments/2026/03/01/seg_"))
	s.True(strings.HasSuffix(ref.SegmentKey, ref.SegmentHash+".jsonl.gz"))

	seg, err := l.ReadSegment(s.ctx, ref.SegmentKey)
	s.Require().NoError(err)
	s.Equal(ref.SegmentHash, seg.Hash)
	s.Equal(1, seg.Meta.EventCount)
	s.Nil(seg.Meta.PrevSegmentHash)
	s.Nil(seg.Meta.PrevSegmentKey)
	s.Equal(SegmentHashInput, seg.Meta.SegmentHashInput)
	line, ok := seg.Find("p1")
	s.Require().True(ok)
	s.JSONEq(`{"kind":"pack.issued","payload":{"packId":"p1"}}`, string(line.Entry))

	cp, err := l.Checkpoint(s.ctx)
	s.Require().NoError(err)
	s.Equal(ref.SegmentHash, cp.HeadSegmentHash)
	s.Equal(ref.SegmentKey, cp.HeadSegmentKey)
	s.Equal(1, cp.SegmentCount)
	s.Equal(1, cp.TotalEvents)
}

func (s *LedgerSuite) TestSegmentsChain() {
	l := s.newLedger()
	first, err := l.AppendReceipt(s.ctx, "p1", entry("p1"))
	s.Require().NoError(err)
	second, err := l.AppendReceipt(s.ctx, "p2", entry("p2"))
	s.Require().NoError(err)
	s.NotEqual(first.SegmentKey, second.SegmentKey)

	seg, err := l.ReadSegment(s.ctx, second.SegmentKey)
	s.Require().NoError(err)
	s.Require().NotNil(seg.Meta.PrevSegmentHash)
	s.Equal(first.SegmentHash, *seg.Meta.PrevSegmentHash)
	s.Equal(first.SegmentKey, *seg.Meta.PrevSegmentKey)

	cp, err := l.Checkpoint(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, cp.SegmentCount)
	s.Equal(2, cp.TotalEvents)
}

func (s *LedgerSuite) TestBatchedAppend() {
	l := s.newLedger(WithSync(false), WithFlushMax(3))

	for _, id := range []string{"p1", "p2"} {
		ref, err := l.AppendReceipt(s.ctx, id, entry(id))
		s.Require().NoError(err)
		s.True(ref.Queued)
	}
	s.Equal(2, l.Pending())

	ref, err := l.AppendReceipt(s.ctx, "p3", entry("p3"))
	s.Require().NoError(err)
	s.False(ref.Queued)
	s.Equal(0, l.Pending())

	seg, err := l.ReadSegment(s.ctx, ref.SegmentKey)
	s.Require().NoError(err)
	s.Equal(3, seg.Meta.EventCount)
}

func (s *LedgerSuite) TestCloseDrainsPending() {
	l := s.newLedger(WithSync(false), WithFlushMax(2), WithFlushInterval(time.Hour))
	l.Start(s.ctx)
	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := l.AppendReceipt(s.ctx, id, entry(id))
		s.Require().NoError(err)
	}
	s.Equal(1, l.Pending())

	s.Require().NoError(l.Close(s.ctx))
	s.Equal(0, l.Pending())
	cp, err := l.Checkpoint(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, cp.SegmentCount)
	s.Equal(3, cp.TotalEvents)
}

func (s *LedgerSuite) TestCloseWithoutStart() {
	l := s.newLedger(WithSync(false))
	_, err := l.AppendReceipt(s.ctx, "p1", entry("p1"))
	s.Require().NoError(err)
	s.Require().NoError(l.Close(s.ctx))
	s.Require().NoError(l.Close(s.ctx))
	s.Equal(0, l.Pending())
}

func (s *LedgerSuite) TestReadSegmentDetectsTampering() {
	l := s.newLedger()
	ref, err := l.AppendReceipt(s.ctx, "p1", entry("p1"))
	s.Require().NoError(err)

	forged, err := compress([]byte(`{"type":"segment.meta"}` + "\n"))
	s.Require().NoError(err)
	s.Require().NoError(s.gw.Put(s.ctx, ref.SegmentKey, forged))

	_, err = l.ReadSegment(s.ctx, ref.SegmentKey)
	s.ErrorIs(err, ErrSegmentIntegrity)

	proof, err := l.ProveReceipt(s.ctx, ref.SegmentKey, "p1")
	s.Require().NoError(err)
	s.False(proof.OK)
	s.Equal(ReasonSegmentIntegrity, proof.Reason)
}

func (s *LedgerSuite) TestReadSegmentRejectsBadKey() {
	l := s.newLedger()
	_, err := l.ReadSegment(s.ctx, "pixpax/ledger/segments/whatever.json")
	s.ErrorIs(err, ErrMalformedSegment)
}

func (s *LedgerSuite) TestProveReceipt() {
	l := s.newLedger()
	first, err := l.AppendReceipt(s.ctx, "p1", entry("p1"))
	s.Require().NoError(err)
	_, err = l.AppendReceipt(s.ctx, "p2", entry("p2"))
	s.Require().NoError(err)

	s.Run("older segment is reachable from head", func() {
		proof, err := l.ProveReceipt(s.ctx, first.SegmentKey, "p1")
		s.Require().NoError(err)
		s.True(proof.OK)
		s.Equal(1, proof.ChainDepthFromHead)
		s.Equal(first.SegmentHash, proof.SegmentHash)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(proof.Entry, &body))
		s.Equal("pack.issued", body["kind"])
	})

	s.Run("pack not in segment", func() {
		proof, err := l.ProveReceipt(s.ctx, first.SegmentKey, "p2")
		s.Require().NoError(err)
		s.Equal(ReasonPackEventNotInSegment, proof.Reason)
	})

	s.Run("missing key", func() {
		proof, err := l.ProveReceipt(s.ctx, "  ", "p1")
		s.Require().NoError(err)
		s.Equal(ReasonMissingSegmentKey, proof.Reason)
	})

	s.Run("unknown segment", func() {
		key := segmentKey(DefaultPrefix, s.clock, strings.Repeat("a", 64))
		proof, err := l.ProveReceipt(s.ctx, key, "p1")
		s.Require().NoError(err)
		s.Equal(ReasonSegmentNotReachable, proof.Reason)
	})
}

func (s *LedgerSuite) TestProveReceiptBrokenChain() {
	l := s.newLedger()
	first, err := l.AppendReceipt(s.ctx, "p1", entry("p1"))
	s.Require().NoError(err)

	wrong := strings.Repeat("0", 64)
	meta := SegmentMeta{
		Type:             lineTypeMeta,
		Format:           SegmentFormat,
		Version:          FormatVersion,
		CreatedAt:        s.clock.Format(time.RFC3339Nano),
		PrevSegmentHash:  &wrong,
		PrevSegmentKey:   &first.SegmentKey,
		SegmentHashInput: SegmentHashInput,
		Compression:      Compression,
		EventCount:       1,
	}
	text, err := encodeSegment(meta, []Line{{Type: lineTypeEntry, EntryID: "e2", PackID: "p2", Entry: json.RawMessage(`{}`)}})
	s.Require().NoError(err)
	body, err := compress(text)
	s.Require().NoError(err)
	cp, err := l.Checkpoint(s.ctx)
	s.Require().NoError(err)
	cp.HeadSegmentHash = canonical.SHA256Hex(text)
	cp.HeadSegmentKey = segmentKey(DefaultPrefix, s.clock, cp.HeadSegmentHash)
	s.Require().NoError(s.gw.Put(s.ctx, cp.HeadSegmentKey, body))
	raw, err := json.Marshal(cp)
	s.Require().NoError(err)
	s.Require().NoError(s.gw.Put(s.ctx, l.checkpointKey(), raw))

	proof, err := l.ProveReceipt(s.ctx, first.SegmentKey, "p1")
	s.Require().NoError(err)
	s.False(proof.OK)
	s.Equal(ReasonPrevSegmentHashMismatch, proof.Reason)

	s.Run("checkpoint disagreeing with head", func() {
		cp.HeadSegmentHash = strings.Repeat("f", 64)
		raw, err := json.Marshal(cp)
		s.Require().NoError(err)
		s.Require().NoError(s.gw.Put(s.ctx, l.checkpointKey(), raw))

		proof, err := l.ProveReceipt(s.ctx, first.SegmentKey, "p1")
		s.Require().NoError(err)
		s.Equal(ReasonCheckpointHeadMismatch, proof.Reason)
	})
}

func (s *LedgerSuite) TestParseSegmentRejectsCountMismatch() {
	meta := SegmentMeta{Type: lineTypeMeta, Format: SegmentFormat, Version: FormatVersion, EventCount: 2}
	text, err := encodeSegment(meta, []Line{{Type: lineTypeEntry, EntryID: "e1", PackID: "p1", Entry: json.RawMessage(`{}`)}})
	s.Require().NoError(err)
	_, _, err = parseSegment(text)
	s.ErrorIs(err, ErrMalformedSegment)
}
