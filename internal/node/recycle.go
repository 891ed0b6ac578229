package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RecycleBin moves dropped partition directories aside instead of
// deleting them immediately, and purges entries older than its TTL on
// a schedule.
type RecycleBin struct {
	roots   []string
	enabled bool
	ttl     time.Duration
	nowFn   func() time.Time
}

// NewRecycleBin builds a RecycleBin over roots (selected the same way
// as PathSelector, by hash(tid||pid) mod N).
func NewRecycleBin(roots []string, enabled bool, ttl time.Duration) *RecycleBin {
	return &RecycleBin{roots: roots, enabled: enabled, ttl: ttl, nowFn: time.Now}
}

// Recycle moves dbPath into this bin's root for (tid, pid), suffixed
// with the current timestamp, and returns the new path. If the bin is
// disabled, it removes dbPath outright instead.
func (r *RecycleBin) Recycle(tid, pid uint32, dbPath string) (string, error) {
	if !r.enabled {
		return "", os.RemoveAll(dbPath)
	}
	sel := NewPathSelector(r.roots)
	root := r.roots[sel.indexFor(tid, pid)]
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(root, fmt.Sprintf("%d_%d_%d", tid, pid, r.nowFn().Unix()))
	if err := os.Rename(dbPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Purge removes every recycled entry older than the bin's TTL, across
// all roots. Entries are timestamp-suffixed directories created by
// Recycle; anything else under a root is left untouched.
func (r *RecycleBin) Purge() error {
	cutoff := r.nowFn().Add(-r.ttl)
	for _, root := range r.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			var tid, pid uint32
			var ts int64
			if n, err := fmt.Sscanf(e.Name(), "%d_%d_%d", &tid, &pid, &ts); err != nil || n != 3 {
				continue
			}
			if time.Unix(ts, 0).Before(cutoff) {
				_ = os.RemoveAll(filepath.Join(root, e.Name()))
			}
		}
	}
	return nil
}

// RunPurgeLoop ticks at interval until ctx is done, calling Purge on
// each tick when the bin is enabled.
func (r *RecycleBin) RunPurgeLoop(ctx context.Context, interval time.Duration, onError func(error)) {
	if !r.enabled {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Purge(); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
