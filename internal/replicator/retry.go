package replicator

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/fedb/tabletd/internal/binlog"
)

// sendWithRetry calls the configured Sender with an exponential
// backoff, bounded by ctx, so a follower that's briefly unreachable
// (restart, GC pause, network blip) doesn't require the whole
// replicate loop to restart from scratch.
func (r *Replicator) sendWithRetry(ctx context.Context, endpoint string, entries []*binlog.Entry) (uint64, error) {
	var acked uint64
	term := r.Term()

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	op := func() error {
		a, err := r.sender.AppendEntries(ctx, endpoint, r.tid, r.pid, term, entries)
		if err != nil {
			return err
		}
		acked = a
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return 0, err
	}
	return acked, nil
}
