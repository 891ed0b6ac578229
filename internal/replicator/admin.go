package replicator

import (
	"context"
	"time"

	"github.com/fedb/tabletd/internal/errs"
)

// Admin is the node-facing control surface over a partition's
// Replicator: the handful of operator/master-triggered RPC shapes a
// leader partition needs to manage its followers, distinct from the
// per-entry Sender used by the background replicate loop.
type Admin interface {
	AddReplica(ctx context.Context, tid, pid uint32, endpoint string) error
	DelReplica(ctx context.Context, tid, pid uint32, endpoint string) error
	ChangeRole(ctx context.Context, tid, pid uint32, leader bool, term uint64) error
	GetTermPair(ctx context.Context, tid, pid uint32) (term, offset uint64, hasTable bool, err error)
}

// partitionAdmin adapts a single partition's Replicator to the Admin
// surface. PollInterval governs how often an added replica's tailing
// loop checks for new binlog entries once it has caught up.
type partitionAdmin struct {
	r            *Replicator
	pollInterval time.Duration
}

// NewAdmin wraps r as an Admin, using pollInterval for newly added
// replicate tasks.
func NewAdmin(r *Replicator, pollInterval time.Duration) Admin {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &partitionAdmin{r: r, pollInterval: pollInterval}
}

func (a *partitionAdmin) AddReplica(ctx context.Context, tid, pid uint32, endpoint string) error {
	if tid != a.r.tid || pid != a.r.pid {
		return errs.New(errs.TableIsNotExist, "no partition %d_%d on this replicator", tid, pid)
	}
	return a.r.AddReplica(ctx, endpoint, a.r.SnapshotLogPartIndex(), a.pollInterval)
}

func (a *partitionAdmin) DelReplica(_ context.Context, tid, pid uint32, endpoint string) error {
	if tid != a.r.tid || pid != a.r.pid {
		return errs.New(errs.TableIsNotExist, "no partition %d_%d on this replicator", tid, pid)
	}
	return a.r.DelReplica(endpoint)
}

// ChangeRole flips the term on a promotion to leader; demoting to
// follower leaves replicate tasks running so a future re-promotion
// doesn't need to re-add every replica from scratch.
func (a *partitionAdmin) ChangeRole(_ context.Context, tid, pid uint32, leader bool, term uint64) error {
	if tid != a.r.tid || pid != a.r.pid {
		return errs.New(errs.TableIsNotExist, "no partition %d_%d on this replicator", tid, pid)
	}
	if leader {
		a.r.SetTerm(term)
	}
	return nil
}

func (a *partitionAdmin) GetTermPair(_ context.Context, tid, pid uint32) (uint64, uint64, bool, error) {
	if tid != a.r.tid || pid != a.r.pid {
		return 0, 0, false, nil
	}
	var maxOffset uint64
	for _, offset := range a.r.Replicas() {
		if offset > maxOffset {
			maxOffset = offset
		}
	}
	return a.r.Term(), maxOffset, true, nil
}
