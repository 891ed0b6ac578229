//go:build windows || wasm

package node

import "fmt"

// DiskUsage is unsupported off unix; tabletd's disk sampler treats this
// as a missing-data sample rather than a fatal error.
func DiskUsage(path string) (totalBytes, availableBytes uint64, err error) {
	return 0, 0, fmt.Errorf("node: disk usage sampling not supported on this platform")
}
