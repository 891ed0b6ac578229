package catalog

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a registry notification path (e.g. a ZooKeeper
// watch's local mirror, or a directory the node writes on every schema
// change) and triggers a catalog rebuild on any write.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *slog.Logger
}

// NewWatcher opens an fsnotify watch on path.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{fsw: fsw, log: log}, nil
}

// Run processes filesystem events until ctx is done, calling rebuild
// on any Write/Create/Remove/Rename event. rebuild errors are logged,
// not propagated, so one bad event doesn't stop future watching.
func (w *Watcher) Run(ctx context.Context, rebuild func() error) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := rebuild(); err != nil {
				w.log.Error("catalog rebuild failed", "path", event.Name, "err", err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("catalog watch error", "err", err)
		}
	}
}
