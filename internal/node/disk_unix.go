//go:build !windows && !wasm

package node

import "golang.org/x/sys/unix"

// DiskUsage reports total and available bytes for the filesystem
// holding path.
func DiskUsage(path string) (totalBytes, availableBytes uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}

	bsize := stat.Bsize
	if bsize < 0 {
		bsize = 0
	}
	blocks := stat.Blocks
	bavail := stat.Bavail
	if bavail < 0 {
		bavail = 0
	}
	return uint64(blocks) * uint64(bsize), uint64(bavail) * uint64(bsize), nil //nolint:gosec
}
