// Package replicator ships one partition's binlog to its followers and
// applies replicated entries on the follower side. A leader keeps a
// LogPart index over its own binlog files and runs one replicate
// goroutine per follower (errgroup backs FanOutAppendEntries); a follower validates and
// applies AppendEntries batches against its own MemTable.
package replicator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/errs"
)

// Sender delivers one AppendEntries batch to a follower endpoint and
// reports the follower's new acknowledged offset. Implemented by the
// node's RPC transport; kept as an interface here so replicator has no
// direct dependency on a wire protocol.
type Sender interface {
	AppendEntries(ctx context.Context, endpoint string, tid, pid uint32, term uint64, entries []*binlog.Entry) (ackedOffset uint64, err error)
}

// followerState tracks one follower's replicate task.
type followerState struct {
	endpoint    string
	ackedOffset uint64
	cancel      context.CancelFunc
}

// Replicator is the leader-side replication fan-out for one partition.
type Replicator struct {
	tid, pid uint32
	dir      string // this partition's binlog directory
	sender   Sender

	clusterMode bool

	mu                   sync.RWMutex
	term                 uint64
	followers            map[string]*followerState
	snapshotLogPartIndex uint64

	wg sync.WaitGroup
}

// Config bundles the fixed construction parameters for a Replicator.
type Config struct {
	TID, PID    uint32
	Dir         string
	Sender      Sender
	ClusterMode bool
	Term        uint64
}

// New builds a leader-side Replicator for one partition.
func New(cfg Config) *Replicator {
	return &Replicator{
		tid:         cfg.TID,
		pid:         cfg.PID,
		dir:         cfg.Dir,
		sender:      cfg.Sender,
		clusterMode: cfg.ClusterMode,
		term:        cfg.Term,
		followers:   make(map[string]*followerState),
	}
}

// Term returns the current term. Always 0 unless cluster mode is on.
func (r *Replicator) Term() uint64 {
	if !r.clusterMode {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.term
}

// SetTerm updates the term, e.g. on a ChangeRole to leader.
func (r *Replicator) SetTerm(term uint64) {
	if !r.clusterMode {
		return
	}
	r.mu.Lock()
	r.term = term
	r.mu.Unlock()
}

// AddReplica starts a replicate task for endpoint at fromOffset. It is
// an error to add an endpoint that is already being replicated to.
func (r *Replicator) AddReplica(ctx context.Context, endpoint string, fromOffset uint64, pollInterval time.Duration) error {
	r.mu.Lock()
	if _, exists := r.followers[endpoint]; exists {
		r.mu.Unlock()
		return errs.New(errs.ReplicaEndpointAlreadyExists, "replica %q already exists for %d_%d", endpoint, r.tid, r.pid)
	}
	taskCtx, cancel := context.WithCancel(ctx)
	fs := &followerState{endpoint: endpoint, ackedOffset: fromOffset, cancel: cancel}
	r.followers[endpoint] = fs
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.replicateLoop(taskCtx, fs, pollInterval)
	}()
	return nil
}

// DelReplica stops the replicate task for endpoint, if any.
func (r *Replicator) DelReplica(endpoint string) error {
	r.mu.Lock()
	fs, ok := r.followers[endpoint]
	if ok {
		delete(r.followers, endpoint)
	}
	r.mu.Unlock()
	if !ok {
		return errs.New(errs.ReplicatorIsNotExist, "no replica %q for %d_%d", endpoint, r.tid, r.pid)
	}
	fs.cancel()
	return nil
}

// Replicas lists the currently tracked follower endpoints and their
// last acknowledged offsets.
func (r *Replicator) Replicas() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.followers))
	for ep, fs := range r.followers {
		out[ep] = fs.ackedOffset
	}
	return out
}

// SnapshotLogPartIndex returns the log part index recorded by the most
// recent successful MakeSnapshot, used to bound how far behind a new
// replica can start without a snapshot transfer.
func (r *Replicator) SnapshotLogPartIndex() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLogPartIndex
}

// SetSnapshotLogPartIndex updates the bookkeeping MakeSnapshot reports
// on success.
func (r *Replicator) SetSnapshotLogPartIndex(idx uint64) {
	r.mu.Lock()
	r.snapshotLogPartIndex = idx
	r.mu.Unlock()
}

// Stop cancels every replicate task and waits for them to exit.
func (r *Replicator) Stop() {
	r.mu.Lock()
	for _, fs := range r.followers {
		fs.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// replicateLoop tails this partition's binlog and pushes AppendEntries
// batches to one follower, retrying on transient send failures.
func (r *Replicator) replicateLoop(ctx context.Context, fs *followerState, pollInterval time.Duration) {
	parts, err := binlog.LoadLogPart(r.dir)
	if err != nil {
		return
	}
	reader, err := binlog.NewReader(r.dir, parts, nil, fs.ackedOffset)
	if err != nil {
		return
	}
	defer reader.Close()

	const batchSize = 64
	for {
		batch := make([]*binlog.Entry, 0, batchSize)
		for len(batch) < batchSize {
			e, status, err := reader.Next()
			if err != nil {
				return
			}
			if status == binlog.Eof || status == binlog.WaitRecord {
				break
			}
			if status == binlog.Corruption {
				return
			}
			batch = append(batch, e)
		}

		if len(batch) > 0 {
			acked, err := r.sendWithRetry(ctx, fs.endpoint, batch)
			if err == nil {
				r.mu.Lock()
				fs.ackedOffset = acked
				r.mu.Unlock()
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

// FanOutAppendEntries sends the same batch to every current follower
// concurrently, returning the first error encountered (if any); used
// by a caller that wants a synchronous, all-or-nothing push rather
// than the background per-follower tailing loop above.
func (r *Replicator) FanOutAppendEntries(ctx context.Context, entries []*binlog.Entry) error {
	r.mu.RLock()
	endpoints := make([]string, 0, len(r.followers))
	for ep := range r.followers {
		endpoints = append(endpoints, ep)
	}
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			_, err := r.sendWithRetry(ctx, ep, entries)
			return err
		})
	}
	return g.Wait()
}
