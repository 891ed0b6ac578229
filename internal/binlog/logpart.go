package binlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// SegmentInfo describes one binlog segment file's offset range.
type SegmentInfo struct {
	Seq         uint32
	StartOffset uint64
	EndOffset   uint64
	HasData     bool
}

// LogPart indexes every binlog segment's starting offset so retention
// and follower catch-up can locate a segment for a given offset without
// scanning file contents.
type LogPart struct {
	mu       sync.RWMutex
	segments []SegmentInfo
}

// LoadLogPart rebuilds the index by scanning dir for %08d.log files and
// reading each one's first and last record offsets.
func LoadLogPart(dir string) (*LogPart, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &LogPart{}, nil
		}
		return nil, err
	}

	var seqs []uint32
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), ".log"), 10, 32)
		if err != nil {
			continue
		}
		seqs = append(seqs, uint32(n))
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	lp := &LogPart{}
	for _, seq := range seqs {
		info, err := scanSegment(filepath.Join(dir, segmentName(seq)), seq)
		if err != nil {
			return nil, err
		}
		lp.segments = append(lp.segments, info)
	}
	return lp, nil
}

func scanSegment(path string, seq uint32) (SegmentInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SegmentInfo{}, err
	}
	defer f.Close()

	info := SegmentInfo{Seq: seq}
	r := bufio.NewReader(f)
	for {
		payload, corrupt, err := readRecord(r)
		if err != nil {
			break // EOF or truncated tail record: stop at last valid record
		}
		if corrupt {
			break
		}
		e, err := UnmarshalEntry(payload)
		if err != nil {
			break
		}
		if !info.HasData {
			info.StartOffset = e.Offset
			info.HasData = true
		}
		info.EndOffset = e.Offset
	}
	return info, nil
}

// AddSegment registers a freshly created, still-empty segment.
func (lp *LogPart) AddSegment(seq uint32, nextOffset uint64) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.segments = append(lp.segments, SegmentInfo{Seq: seq, StartOffset: nextOffset, EndOffset: nextOffset})
}

// Observe records that offset was appended to segment seq.
func (lp *LogPart) Observe(seq uint32, offset uint64) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	for i := range lp.segments {
		if lp.segments[i].Seq != seq {
			continue
		}
		if !lp.segments[i].HasData {
			lp.segments[i].StartOffset = offset
			lp.segments[i].HasData = true
		}
		lp.segments[i].EndOffset = offset
		return
	}
}

// Last returns the most recently added segment, if any.
func (lp *LogPart) Last() (SegmentInfo, bool) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	if len(lp.segments) == 0 {
		return SegmentInfo{}, false
	}
	return lp.segments[len(lp.segments)-1], true
}

// All returns a snapshot of every known segment, oldest first.
func (lp *LogPart) All() []SegmentInfo {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	out := make([]SegmentInfo, len(lp.segments))
	copy(out, lp.segments)
	return out
}

// SegmentFor returns the segment whose range contains offset, the
// segment to start a tailing read from for a given follower offset.
func (lp *LogPart) SegmentFor(offset uint64) (SegmentInfo, bool) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	for _, s := range lp.segments {
		if offset <= s.EndOffset {
			return s, true
		}
	}
	if len(lp.segments) > 0 {
		return lp.segments[len(lp.segments)-1], true
	}
	return SegmentInfo{}, false
}

// removeBefore drops segments older than seq from the index (used after
// GC deletes the underlying files). Exists for retention.go.
func (lp *LogPart) removeBefore(seq uint32) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	kept := lp.segments[:0:0]
	for _, s := range lp.segments {
		if s.Seq >= seq {
			kept = append(kept, s)
		}
	}
	lp.segments = kept
}

func segmentPath(dir string, seq uint32) string {
	return filepath.Join(dir, fmt.Sprintf("%08d.log", seq))
}
