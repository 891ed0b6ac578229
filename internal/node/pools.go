package node

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool is a named, bounded-concurrency worker slot set. Acquire blocks
// (respecting ctx) until a slot is free; Release must be called exactly
// once per successful Acquire.
type Pool struct {
	name string
	sem  *semaphore.Weighted
}

func newPool(name string, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{name: name, sem: semaphore.NewWeighted(int64(size))}
}

// Name returns the pool's configured name, for logging.
func (p *Pool) Name() string { return p.name }

// Acquire blocks for one slot.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot only if one is immediately available.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release returns a slot taken by Acquire/TryAcquire.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Pools bundles the node's four named worker pools plus a small
// keep-alive pool reserved for the registry session, so long-running
// tasks never starve the connection that reports this node as alive.
type Pools struct {
	Task     *Pool
	IO       *Pool
	Snapshot *Pool
	GC       *Pool
	KeepAlive *Pool
}

// NewPools builds the node's worker pools from configured sizes.
func NewPools(taskSize, ioSize, snapshotSize, gcSize int) *Pools {
	return &Pools{
		Task:      newPool("task_pool", taskSize),
		IO:        newPool("io_pool", ioSize),
		Snapshot:  newPool("snapshot_pool", snapshotSize),
		GC:        newPool("gc_pool", gcSize),
		KeepAlive: newPool("keep_alive_pool", 1),
	}
}
