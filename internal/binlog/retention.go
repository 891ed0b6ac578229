package binlog

import (
	"os"
	"time"
)

// DeleteExpired removes binlog segments whose highest contained offset
// is below snapshotOffset and whose file is older than minAge, stopping
// at the first segment that doesn't qualify (segments are deleted
// oldest-first so the LogPart index stays a contiguous range) and never
// touching the currently active segment.
func DeleteExpired(dir string, parts *LogPart, snapshotOffset uint64, minAge time.Duration) ([]uint32, error) {
	segments := parts.All()
	if len(segments) <= 1 {
		return nil, nil
	}
	active := segments[len(segments)-1].Seq

	var deleted []uint32
	for _, s := range segments[:len(segments)-1] {
		if s.Seq == active {
			break
		}
		if s.EndOffset >= snapshotOffset {
			break
		}
		path := segmentPath(dir, s.Seq)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				deleted = append(deleted, s.Seq)
				continue
			}
			return deleted, err
		}
		if time.Since(info.ModTime()) < minAge {
			break
		}
		if err := os.Remove(path); err != nil {
			return deleted, err
		}
		deleted = append(deleted, s.Seq)
	}

	if len(deleted) > 0 {
		parts.removeBefore(deleted[len(deleted)-1] + 1)
	}
	return deleted, nil
}
