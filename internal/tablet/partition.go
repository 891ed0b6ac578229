// Package tablet owns one node's live partitions: the state machine
// that governs what operations a partition currently accepts, and the
// Put/Get/Scan/Count/Traverse/Delete handlers that run against a
// partition in Normal state.
package tablet

import (
	"context"
	"sync"
	"time"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/memtable"
	"github.com/fedb/tabletd/internal/replicator"
	"github.com/fedb/tabletd/internal/schema"
	"github.com/fedb/tabletd/internal/snapshot"
)

// State is a partition's position in its lifecycle, mirroring the
// source tablet's TableState enum.
type State int

const (
	Undefined State = iota
	Loading
	Normal
	MakingSnapshot
	SnapshotPaused
)

func (s State) String() string {
	switch s {
	case Undefined:
		return "kTableUndefined"
	case Loading:
		return "kTableLoading"
	case Normal:
		return "kTableNormal"
	case MakingSnapshot:
		return "kMakingSnapshot"
	case SnapshotPaused:
		return "kSnapshotPaused"
	default:
		return "kTableUndefined"
	}
}

// Partition is one (tid, pid) shard: one MemTable, one binlog Writer,
// the snapshot config for this shard, and (if this node leads it) a
// Replicator fanning writes out to followers.
type Partition struct {
	tid, pid uint32
	dbPath   string

	mu    sync.RWMutex
	state State
	term  uint64

	isLeader     bool
	followerMode bool

	mt     *memtable.MemTable
	index  *schema.TableIndex
	meta   *schema.TableMeta
	writer *binlog.Writer
	snapCfg snapshot.Config

	repl *replicator.Replicator

	lastSnapshotAt time.Time

	putSlowLogThreshold   time.Duration
	querySlowLogThreshold time.Duration
	onSlowLog             func(op string, elapsed time.Duration, detail string)
}

// Config bundles what NewPartition needs to build one partition's
// runtime state. The caller (the node) is responsible for having
// already created mt/writer/index via C1-C3's constructors.
type Config struct {
	TID, PID uint32
	DBPath   string

	Index *schema.TableIndex
	Meta  *schema.TableMeta
	MT    *memtable.MemTable

	Writer *binlog.Writer
	Snap   snapshot.Config
	Repl   *replicator.Replicator

	PutSlowLogThreshold   time.Duration
	QuerySlowLogThreshold time.Duration
	OnSlowLog             func(op string, elapsed time.Duration, detail string)
}

// NewPartition builds a Partition in Loading state; the caller calls
// FinishLoad once recovery (snapshot + binlog replay) completes.
func NewPartition(cfg Config) *Partition {
	return &Partition{
		tid: cfg.TID, pid: cfg.PID, dbPath: cfg.DBPath,
		state:   Loading,
		mt:      cfg.MT,
		index:   cfg.Index,
		meta:    cfg.Meta,
		writer:  cfg.Writer,
		snapCfg: cfg.Snap,
		repl:    cfg.Repl,

		putSlowLogThreshold:   cfg.PutSlowLogThreshold,
		querySlowLogThreshold: cfg.QuerySlowLogThreshold,
		onSlowLog:             cfg.OnSlowLog,
	}
}

// TID implements catalog.PartitionHandle.
func (p *Partition) TID() uint32 { return p.tid }

// PID implements catalog.PartitionHandle.
func (p *Partition) PID() uint32 { return p.pid }

// State returns the partition's current lifecycle state.
func (p *Partition) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// IsLeader reports whether this node currently serves this partition
// as leader (accepts mutations).
func (p *Partition) IsLeader() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isLeader
}

// FinishLoad transitions Loading -> Normal once recovery has completed.
func (p *Partition) FinishLoad() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Loading {
		return errs.New(errs.TableStatusIsNotNormal, "partition %d_%d not loading (state %s)", p.tid, p.pid, p.state)
	}
	p.state = Normal
	return nil
}

// ChangeRole flips leader/follower role and updates term. Only valid
// while Normal, matching the source tablet's refusal to reassign role
// mid-load.
func (p *Partition) ChangeRole(leader bool, term uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Loading {
		return errs.New(errs.TableIsLoading, "partition %d_%d is loading", p.tid, p.pid)
	}
	if p.state != Normal {
		return errs.New(errs.TableStatusIsNotNormal, "partition %d_%d status is %s", p.tid, p.pid, p.state)
	}
	p.isLeader = leader
	p.term = term
	if p.repl != nil {
		p.repl.SetTerm(term)
	}
	return nil
}

// SetFollowerMode toggles node-wide read-only rejection for mutation handlers.
func (p *Partition) SetFollowerMode(on bool) {
	p.mu.Lock()
	p.followerMode = on
	p.mu.Unlock()
}

// BeginMakingSnapshot transitions Normal -> MakingSnapshot. Returns an
// error if a snapshot or drop is already in progress.
func (p *Partition) BeginMakingSnapshot() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Normal {
		return errs.New(errs.TableStatusIsNotNormal, "partition %d_%d status is %s", p.tid, p.pid, p.state)
	}
	p.state = MakingSnapshot
	return nil
}

// EndMakingSnapshot transitions MakingSnapshot -> Normal, recording the
// completion time used by the snapshot scheduler's offline-interval check.
func (p *Partition) EndMakingSnapshot() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Normal
	p.lastSnapshotAt = time.Now()
}

// PauseSnapshot transitions Normal -> SnapshotPaused, required before SendSnapshot.
func (p *Partition) PauseSnapshot() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == SnapshotPaused {
		return nil
	}
	if p.state != Normal {
		return errs.New(errs.TableStatusIsNotNormal, "partition %d_%d status is %s", p.tid, p.pid, p.state)
	}
	p.state = SnapshotPaused
	return nil
}

// RecoverSnapshot transitions SnapshotPaused -> Normal (resuming after a
// completed SendSnapshot).
func (p *Partition) RecoverSnapshot() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != SnapshotPaused {
		return errs.New(errs.TableStatusIsNotKSnapshotPaused, "partition %d_%d status is %s", p.tid, p.pid, p.state)
	}
	p.state = Normal
	return nil
}

// Drop tears down the partition's runtime state. Forbidden while a
// snapshot is in progress.
func (p *Partition) Drop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == MakingSnapshot {
		return errs.New(errs.TableStatusIsKMakingSnapshot, "partition %d_%d is making a snapshot", p.tid, p.pid)
	}
	if p.repl != nil {
		p.repl.Stop()
	}
	p.state = Undefined
	return nil
}

// LastSnapshotAge implements snapshot.Trigger.
func (p *Partition) LastSnapshotAge() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastSnapshotAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return time.Since(p.lastSnapshotAt)
}

// RunSnapshot implements snapshot.Trigger: it performs the
// Normal->MakingSnapshot->Normal transition around snapshot.MakeSnapshot.
func (p *Partition) RunSnapshot(_ context.Context) error {
	if err := p.BeginMakingSnapshot(); err != nil {
		return err
	}
	defer p.EndMakingSnapshot()

	p.mu.RLock()
	curOffset := p.writer.NextOffset()
	term := p.term
	p.mu.RUnlock()

	var lastOffset uint64
	if m, err := snapshot.ReadManifest(p.snapCfg.Dir); err == nil {
		lastOffset = m.Offset
	}

	result, err := snapshot.MakeSnapshot(p.snapCfg, p.mt, curOffset, term, lastOffset, 0)
	if err != nil {
		return err
	}
	if !result.Skipped && p.repl != nil {
		p.repl.SetSnapshotLogPartIndex(result.Manifest.Offset)
	}
	return nil
}

// checkWritable returns an error unless the partition currently
// accepts mutations: it must be Normal, this node must be leader, and
// follower_mode must be off node-wide.
func (p *Partition) checkWritable() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch p.state {
	case Undefined, Loading:
		return errs.New(errs.TableIsLoading, "partition %d_%d is not ready (state %s)", p.tid, p.pid, p.state)
	case MakingSnapshot:
		return errs.New(errs.TableStatusIsKMakingSnapshot, "partition %d_%d is making a snapshot", p.tid, p.pid)
	case SnapshotPaused:
		return errs.New(errs.TableStatusIsNotNormal, "partition %d_%d status is %s", p.tid, p.pid, p.state)
	}
	if !p.isLeader {
		return errs.New(errs.TableIsFollower, "partition %d_%d is a follower", p.tid, p.pid)
	}
	if p.followerMode {
		return errs.New(errs.IsFollowerCluster, "node is in follower_mode")
	}
	return nil
}

// checkReadable returns an error unless the partition currently
// accepts reads: anything except Undefined/Loading.
func (p *Partition) checkReadable() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == Undefined || p.state == Loading {
		return errs.New(errs.TableStatusIsNotNormal, "partition %d_%d is not ready (state %s)", p.tid, p.pid, p.state)
	}
	return nil
}
