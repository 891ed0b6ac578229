// Package node implements the host-level concerns a tabletd process
// owns independently of any one partition: deterministic data-directory
// placement across multiple disks, a recycle bin for dropped
// partitions, disk usage sampling, and the node's named worker pools.
package node

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
)

// PathSelector deterministically assigns each (tid, pid) to one of a
// fixed list of root paths, so a partition's directory never moves
// between restarts without an explicit migration.
type PathSelector struct {
	roots []string
}

// NewPathSelector builds a PathSelector over roots, in the order given
// (hash(tid||pid) mod len(roots) depends on that order being stable).
func NewPathSelector(roots []string) *PathSelector {
	return &PathSelector{roots: roots}
}

// DBPath returns the data directory for (tid, pid) under its assigned root.
func (p *PathSelector) DBPath(tid, pid uint32) string {
	root := p.roots[p.indexFor(tid, pid)]
	return filepath.Join(root, fmt.Sprintf("%d_%d", tid, pid))
}

func (p *PathSelector) indexFor(tid, pid uint32) int {
	h := fnv.New64a()
	var buf [8]byte
	putUint32Pair(buf[:], tid, pid)
	_, _ = h.Write(buf[:])
	return int(h.Sum64() % uint64(len(p.roots)))
}

func putUint32Pair(buf []byte, a, b uint32) {
	buf[0] = byte(a >> 24)
	buf[1] = byte(a >> 16)
	buf[2] = byte(a >> 8)
	buf[3] = byte(a)
	buf[4] = byte(b >> 24)
	buf[5] = byte(b >> 16)
	buf[6] = byte(b >> 8)
	buf[7] = byte(b)
}
