package node

import (
	"context"
	"time"
)

// DiskSample is one point-in-time reading for a root path.
type DiskSample struct {
	Path           string
	TotalBytes     uint64
	AvailableBytes uint64
	Err            error
}

// SampleDiskUsage walks roots and reports one DiskSample per path.
func SampleDiskUsage(roots []string) []DiskSample {
	samples := make([]DiskSample, len(roots))
	for i, root := range roots {
		total, avail, err := DiskUsage(root)
		samples[i] = DiskSample{Path: root, TotalBytes: total, AvailableBytes: avail, Err: err}
	}
	return samples
}

// RunDiskSamplerLoop ticks at interval until ctx is done, handing each
// round's samples to onSample (e.g. to export as metrics or log a
// warning on low free space).
func RunDiskSamplerLoop(ctx context.Context, roots []string, interval time.Duration, onSample func([]DiskSample)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onSample(SampleDiskUsage(roots))
		}
	}
}
