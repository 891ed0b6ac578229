package binlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/fedb/tabletd/internal/errs"
)

// segmentName formats the %08d.log segment filename for seq.
func segmentName(seq uint32) string {
	return fmt.Sprintf("%08d.log", seq)
}

// Config holds the tunables a Writer needs.
type Config struct {
	Dir                string
	SingleFileMaxSize  int64
	SyncToDiskInterval time.Duration
	NotifyOnPut        bool
}

// Writer appends framed Entry records to a rolling set of segment
// files, guarded against a second process writing the same directory.
type Writer struct {
	cfg Config

	mu         sync.Mutex
	lock       *flock.Flock
	activeSeq  uint32
	activeFile *os.File
	activeSize int64
	nextOffset uint64

	parts *LogPart

	notifyMu sync.Mutex
	notifyCh chan struct{}

	syncCancel context.CancelFunc
	syncDone   chan struct{}
}

// OpenWriter opens (creating if necessary) the binlog directory at
// cfg.Dir, acquires the single-writer file lock, and resumes appending
// after the highest existing offset. startOffset is used only when the
// directory is empty (a brand-new partition).
func OpenWriter(cfg Config, startOffset uint64) (*Writer, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.FailToGetDbRootPath, err, "create binlog dir %s", cfg.Dir)
	}

	lockPath := filepath.Join(cfg.Dir, ".writer.lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		return nil, errs.New(errs.WriteDataFailed, "binlog directory %s is already locked by another writer", cfg.Dir)
	}

	parts, err := LoadLogPart(cfg.Dir)
	if err != nil {
		_ = fl.Unlock()
		return nil, err
	}

	w := &Writer{cfg: cfg, lock: fl, parts: parts, notifyCh: make(chan struct{})}

	if last, ok := parts.Last(); ok {
		w.activeSeq = last.Seq
		w.nextOffset = last.EndOffset + 1
		f, err := os.OpenFile(filepath.Join(cfg.Dir, segmentName(last.Seq)), os.O_RDWR|os.O_APPEND, 0o644)
		if err != nil {
			_ = fl.Unlock()
			return nil, errs.Wrap(errs.WriteDataFailed, err, "reopen active segment")
		}
		info, _ := f.Stat()
		w.activeFile = f
		if info != nil {
			w.activeSize = info.Size()
		}
	} else {
		w.nextOffset = startOffset
		if err := w.rollLocked(); err != nil {
			_ = fl.Unlock()
			return nil, err
		}
	}

	if cfg.SyncToDiskInterval > 0 {
		w.startSyncLoop()
	}
	return w, nil
}

// Append writes e to the active segment at the next offset, rolling to
// a new segment first if the active one would exceed SingleFileMaxSize.
// It returns the offset the entry was written at.
func (w *Writer) Append(e *Entry) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e.Offset = w.nextOffset
	payload, err := e.Marshal()
	if err != nil {
		return 0, errs.Wrap(errs.EncodeError, err, "marshal log entry")
	}

	if w.cfg.SingleFileMaxSize > 0 && w.activeSize+int64(len(payload)) > w.cfg.SingleFileMaxSize {
		if err := w.rollLocked(); err != nil {
			return 0, err
		}
	}

	n, err := writeRecord(w.activeFile, payload)
	if err != nil {
		return 0, errs.Wrap(errs.WriteDataFailed, err, "append binlog record")
	}
	w.activeSize += int64(n)
	w.parts.Observe(w.activeSeq, e.Offset)
	w.nextOffset++

	if w.cfg.NotifyOnPut {
		w.notify()
	}
	return e.Offset, nil
}

// rollLocked closes the current active file (if any) and opens the next
// numbered segment. Callers must hold w.mu.
func (w *Writer) rollLocked() error {
	if w.activeFile != nil {
		if err := w.activeFile.Sync(); err != nil {
			return errs.Wrap(errs.WriteDataFailed, err, "fsync before roll")
		}
		_ = w.activeFile.Close()
		w.activeSeq++
	}
	f, err := os.OpenFile(filepath.Join(w.cfg.Dir, segmentName(w.activeSeq)), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Wrap(errs.WriteDataFailed, err, "create binlog segment")
	}
	w.activeFile = f
	w.activeSize = 0
	w.parts.AddSegment(w.activeSeq, w.nextOffset)
	return nil
}

// notify wakes any Reader waiting in WaitRecord by closing and
// replacing the notify channel.
func (w *Writer) notify() {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	close(w.notifyCh)
	w.notifyCh = make(chan struct{})
}

func (w *Writer) notifyChan() <-chan struct{} {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	return w.notifyCh
}

// startSyncLoop runs a background ticker that fsyncs the active segment
// on a fixed interval, the same shape as a periodic health-check loop:
// a cancelable context, a done channel, select on ticker vs cancellation.
func (w *Writer) startSyncLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	w.syncCancel = cancel
	w.syncDone = make(chan struct{})

	go func() {
		defer close(w.syncDone)
		ticker := time.NewTicker(w.cfg.SyncToDiskInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.mu.Lock()
				if w.activeFile != nil {
					_ = w.activeFile.Sync()
				}
				w.mu.Unlock()
			}
		}
	}()
}

// NextOffset returns the offset the next Append will use.
func (w *Writer) NextOffset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextOffset
}

// Close stops the sync loop, flushes, and releases the writer lock.
func (w *Writer) Close() error {
	if w.syncCancel != nil {
		w.syncCancel()
		<-w.syncDone
	}
	w.mu.Lock()
	if w.activeFile != nil {
		_ = w.activeFile.Sync()
		_ = w.activeFile.Close()
	}
	w.mu.Unlock()
	return w.lock.Unlock()
}
