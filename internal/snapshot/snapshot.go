package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fedb/tabletd/internal/binlog"
	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/memtable"
)

// Config bundles the per-partition settings MakeSnapshot and Recover need.
type Config struct {
	Dir                   string
	IndexName             string // the primary index MakeSnapshot dumps from and Recover restores into
	Compression           Compression
	MakeSnapshotThreshold uint64 // make_snapshot_threshold_offset
}

// Result reports what MakeSnapshot actually did.
type Result struct {
	Skipped  bool
	Manifest Manifest
}

// MakeSnapshot dumps mt's primary index into a new, time-stamped data
// file plus a MANIFEST describing it. The caller is responsible for the
// Normal->MakingSnapshot->Normal state transition around this call; this
// function only performs the dump and threshold-skip decision.
func MakeSnapshot(cfg Config, mt *memtable.MemTable, curOffset, term uint64, lastSnapshotOffset uint64, endOffset uint64) (Result, error) {
	if endOffset == 0 && curOffset >= lastSnapshotOffset && curOffset-lastSnapshotOffset < cfg.MakeSnapshotThreshold {
		return Result{Skipped: true}, nil
	}
	offset := curOffset
	if endOffset != 0 {
		offset = endOffset
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return Result{}, errs.Wrap(errs.WriteDataFailed, err, "create snapshot dir")
	}

	name := dataFileName(offset)
	path := filepath.Join(cfg.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return Result{}, errs.Wrap(errs.WriteDataFailed, err, "create snapshot data file")
	}
	defer f.Close()

	cw, err := wrapWriter(f, cfg.Compression)
	if err != nil {
		return Result{}, err
	}

	result, err := mt.Traverse(cfg.IndexName, memtable.TraverseCursor{}, 0)
	if err != nil {
		return Result{}, err
	}

	var count uint64
	for _, rec := range result.Records {
		e := binlog.Entry{
			Method:    binlog.MethodPut,
			IndexName: cfg.IndexName,
			PK:        rec.PK,
			StartTs:   rec.Record.TS,
			Value:     rec.Record.Value,
		}
		payload, err := e.Marshal()
		if err != nil {
			return Result{}, errs.Wrap(errs.EncodeError, err, "encode snapshot record")
		}
		if _, err := binlog.WriteRecord(cw, payload); err != nil {
			return Result{}, errs.Wrap(errs.WriteDataFailed, err, "write snapshot record")
		}
		count++
	}
	if err := cw.Close(); err != nil {
		return Result{}, errs.Wrap(errs.WriteDataFailed, err, "flush snapshot data file")
	}
	if err := f.Sync(); err != nil {
		return Result{}, errs.Wrap(errs.WriteDataFailed, err, "sync snapshot data file")
	}

	m := Manifest{Name: name, Offset: offset, Term: term, Count: count}
	if err := WriteManifest(cfg.Dir, m); err != nil {
		return Result{}, err
	}
	return Result{Manifest: m}, nil
}

// Recover reads MANIFEST, streams the snapshot's records into mt, and
// replays every binlog entry with offset > manifest.Offset so the
// caller's MemTable ends up at the log tail. When dir has no MANIFEST,
// or the MANIFEST's data file is missing, Recover returns a zero
// Manifest without reading the binlog. The caller is responsible
// for keeping the partition in Loading state for the duration.
func Recover(cfg Config, mt *memtable.MemTable, bdir string) (Manifest, error) {
	if !HasManifest(cfg.Dir) {
		return Manifest{}, nil // no snapshot yet; the binlog is not read here
	}
	m, err := ReadManifest(cfg.Dir)
	if err != nil {
		return Manifest{}, errs.Wrap(errs.SnapshotIsNotExist, err, "read manifest")
	}

	path := filepath.Join(cfg.Dir, m.Name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// MANIFEST exists but the data file is gone: proceed as if
			// there were no snapshot, matching the source tablet's
			// recovery behavior rather than aborting the whole load.
			return Manifest{}, nil
		}
		return Manifest{}, errs.Wrap(errs.SnapshotIsNotExist, err, "open snapshot data file")
	}
	defer f.Close()

	cr, err := wrapReader(f, cfg.Compression)
	if err != nil {
		return Manifest{}, err
	}

	for {
		payload, corrupt, err := binlog.ReadRecord(cr)
		if err != nil {
			break
		}
		if corrupt {
			return Manifest{}, errs.New(errs.ReceiveDataError, "corrupt snapshot record in %s", m.Name)
		}
		e, err := binlog.UnmarshalEntry(payload)
		if err != nil {
			return Manifest{}, errs.Wrap(errs.ReceiveDataError, err, "decode snapshot record")
		}
		if err := mt.Put(cfg.IndexName, e.PK, e.StartTs, e.Value); err != nil {
			return Manifest{}, err
		}
	}

	parts, err := binlog.LoadLogPart(bdir)
	if err != nil {
		return Manifest{}, err
	}
	reader, err := binlog.NewReader(bdir, parts, nil, m.Offset)
	if err != nil {
		return Manifest{}, err
	}
	defer reader.Close()
	for {
		e, status, err := reader.Next()
		if err != nil {
			return Manifest{}, err
		}
		if status == binlog.Eof || status == binlog.WaitRecord {
			break
		}
		if status == binlog.Corruption {
			return Manifest{}, errs.New(errs.ReceiveDataError, "corrupt binlog entry during recovery")
		}
		if err := applyEntry(mt, e); err != nil {
			return Manifest{}, err
		}
	}

	return m, nil
}

func applyEntry(mt *memtable.MemTable, e *binlog.Entry) error {
	switch e.Method {
	case binlog.MethodPut:
		if len(e.Dimensions) > 0 {
			return mt.PutDimensions(e.StartTs, e.Value, e.Dimensions)
		}
		return mt.Put(e.IndexName, e.PK, e.StartTs, e.Value)
	case binlog.MethodDelete:
		return nil // tombstone application belongs to C6's delete path, not snapshot replay
	default:
		return fmt.Errorf("snapshot: unknown binlog method %d", e.Method)
	}
}

func dataFileName(offset uint64) string {
	return fmt.Sprintf("%d.sdb", offset)
}
