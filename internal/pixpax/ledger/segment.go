package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"pixpax/pkg/canonical"
	"pixpax/pkg/platform/sentinel"
)

const (
	SegmentFormat    = "pixpax-ledger-segment"
	CheckpointFormat = "pixpax-ledger-checkpoint"
	FormatVersion    = "1.0"
	SegmentHashInput = "sha256(uncompressed-jsonl-utf8-bytes)"
	Compression      = "gzip"

	lineTypeMeta  = "segment.meta"
	lineTypeEntry = "ledger.entry"
)

var (
	// ErrMalformedSegment is returned when a segment body does not parse.
	ErrMalformedSegment = fmt.Errorf("malformed ledger segment: %w", sentinel.ErrInvalidInput)
	// ErrSegmentIntegrity is returned when a segment does not hash to its key.
	ErrSegmentIntegrity = fmt.Errorf("ledger segment integrity: %w", sentinel.ErrInvalidState)
)

// SegmentMeta is the first line of every segment.
type SegmentMeta struct {
	Type             string  `json:"type"`
	Format           string  `json:"format"`
	Version          string  `json:"version"`
	CreatedAt        string  `json:"createdAt"`
	PrevSegmentHash  *string `json:"prevSegmentHash"`
	PrevSegmentKey   *string `json:"prevSegmentKey"`
	SegmentHashInput string  `json:"segmentHashInput"`
	Compression      string  `json:"compression"`
	EventCount       int     `json:"eventCount"`
}

// Line is one appended ledger entry.
type Line struct {
	Type    string          `json:"type"`
	EntryID string          `json:"entryId"`
	PackID  string          `json:"packId"`
	Entry   json.RawMessage `json:"entry"`
}

// Segment is a parsed, integrity-checked segment.
type Segment struct {
	Key   string
	Hash  string
	Meta  SegmentMeta
	Lines []Line
}

// Find returns the line recorded for packID.
func (s *Segment) Find(packID string) (Line, bool) {
	for _, l := range s.Lines {
		if l.PackID == packID {
			return l, true
		}
	}
	return Line{}, false
}

// Checkpoint points at the newest segment of the chain.
type Checkpoint struct {
	Format           string `json:"format"`
	Version          string `json:"version"`
	UpdatedAt        string `json:"updatedAt"`
	Prefix           string `json:"prefix"`
	HeadSegmentHash  string `json:"headSegmentHash,omitempty"`
	HeadSegmentKey   string `json:"headSegmentKey,omitempty"`
	SegmentCount     int    `json:"segmentCount"`
	TotalEvents      int    `json:"totalEvents"`
	SegmentHashInput string `json:"segmentHashInput"`
}

func encodeSegment(meta SegmentMeta, lines []Line) ([]byte, error) {
	var buf bytes.Buffer
	write := func(v any) error {
		b, err := canonical.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
		return nil
	}
	if err := write(meta); err != nil {
		return nil, fmt.Errorf("encode segment meta: %w", err)
	}
	for _, l := range lines {
		if err := write(l); err != nil {
			return nil, fmt.Errorf("encode ledger line %s: %w", l.EntryID, err)
		}
	}
	return buf.Bytes(), nil
}

func parseSegment(text []byte) (SegmentMeta, []Line, error) {
	var meta SegmentMeta
	var lines []Line
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if first {
			first = false
			if err := json.Unmarshal(raw, &meta); err != nil {
				return meta, nil, fmt.Errorf("%w: meta line: %v", ErrMalformedSegment, err)
			}
			if meta.Type != lineTypeMeta || meta.Format != SegmentFormat || meta.Version != FormatVersion {
				return meta, nil, fmt.Errorf("%w: unexpected meta header", ErrMalformedSegment)
			}
			continue
		}
		var l Line
		if err := json.Unmarshal(raw, &l); err != nil {
			return meta, nil, fmt.Errorf("%w: entry line: %v", ErrMalformedSegment, err)
		}
		if l.Type != lineTypeEntry || l.EntryID == "" {
			return meta, nil, fmt.Errorf("%w: unexpected line type %q", ErrMalformedSegment, l.Type)
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return meta, nil, fmt.Errorf("%w: %v", ErrMalformedSegment, err)
	}
	if first {
		return meta, nil, fmt.Errorf("%w: empty segment", ErrMalformedSegment)
	}
	if meta.EventCount != len(lines) {
		return meta, nil, fmt.Errorf("%w: eventCount %d but %d lines", ErrMalformedSegment, meta.EventCount, len(lines))
	}
	return meta, lines, nil
}

func compress(text []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(text); err != nil {
		return nil, fmt.Errorf("gzip segment: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip segment: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip: %v", ErrMalformedSegment, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip: %v", ErrMalformedSegment, err)
	}
	return out, nil
}

func segmentKey(prefix string, at time.Time, hash string) string {
	return path.Join(prefix, "segments", at.UTC().Format("2006/01/02"), "seg_"+hash+".jsonl.gz")
}

// hashFromKey extracts the content hash embedded in a segment key.
func hashFromKey(key string) (string, error) {
	base := path.Base(key)
	if !strings.HasPrefix(base, "seg_") || !strings.HasSuffix(base, ".jsonl.gz") {
		return "", errors.New("not a segment key")
	}
	h := strings.TrimSuffix(strings.TrimPrefix(base, "seg_"), ".jsonl.gz")
	if len(h) != 64 {
		return "", errors.New("segment key hash has wrong length")
	}
	return h, nil
}
