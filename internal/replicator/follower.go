package replicator

import (
	"sync"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/memtable"
)

// Applier is the subset of MemTable a follower needs to replay an
// AppendEntries batch.
type Applier interface {
	Put(indexName, pk string, ts uint64, value []byte) error
	PutDimensions(ts uint64, value []byte, dimensions map[string]string) error
}

var _ Applier = (*memtable.MemTable)(nil)

// Follower is the receiving side of replication for one partition: it
// validates and applies AppendEntries batches and enforces
// follower_mode (read-only from this node's perspective).
type Follower struct {
	mt Applier

	mu           sync.Mutex
	currentTerm  uint64
	localOffset  uint64
	followerMode bool
}

// NewFollower builds a Follower applying entries to mt, starting at
// startOffset (the partition's current committed offset).
func NewFollower(mt Applier, startOffset uint64, followerMode bool) *Follower {
	return &Follower{mt: mt, localOffset: startOffset, followerMode: followerMode}
}

// SetFollowerMode toggles the read-only handler-layer rejection.
func (f *Follower) SetFollowerMode(on bool) {
	f.mu.Lock()
	f.followerMode = on
	f.mu.Unlock()
}

// FollowerMode reports whether this node is currently read-only.
func (f *Follower) FollowerMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.followerMode
}

// LocalOffset returns the last offset this follower has applied.
func (f *Follower) LocalOffset() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.localOffset
}

// AppendEntries validates and applies one batch from the leader. It
// rejects the whole batch (without partial application) if the leading
// entry's term is stale or its offset doesn't immediately follow the
// follower's current offset.
func (f *Follower) AppendEntries(term uint64, entries []*binlog.Entry) (ackedOffset uint64, err error) {
	if len(entries) == 0 {
		return f.LocalOffset(), nil
	}

	f.mu.Lock()
	if term < f.currentTerm {
		f.mu.Unlock()
		return 0, errs.New(errs.ReplicatorRoleIsNotLeader, "stale term %d < current %d", term, f.currentTerm)
	}
	if entries[0].Offset != f.localOffset+1 {
		f.mu.Unlock()
		return 0, errs.New(errs.WriteDataFailed, "offset gap: want %d, got %d", f.localOffset+1, entries[0].Offset)
	}
	f.currentTerm = term
	f.mu.Unlock()

	for _, e := range entries {
		if err := f.apply(e); err != nil {
			return 0, err
		}
		f.mu.Lock()
		f.localOffset = e.Offset
		f.mu.Unlock()
	}
	return f.LocalOffset(), nil
}

func (f *Follower) apply(e *binlog.Entry) error {
	switch e.Method {
	case binlog.MethodPut:
		if len(e.Dimensions) > 0 {
			return f.mt.PutDimensions(e.StartTs, e.Value, e.Dimensions)
		}
		return f.mt.Put(e.IndexName, e.PK, e.StartTs, e.Value)
	case binlog.MethodDelete:
		return nil // ts-range delete application is handled by the tablet delete path, not replication replay
	default:
		return errs.New(errs.WriteDataFailed, "unknown replicated method %d", e.Method)
	}
}
