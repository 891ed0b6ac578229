package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fedb/tabletd/internal/catalog"
	"github.com/fedb/tabletd/internal/config"
	"github.com/fedb/tabletd/internal/logging"
	"github.com/fedb/tabletd/internal/node"
	"github.com/fedb/tabletd/internal/snapshot"
	"github.com/fedb/tabletd/internal/tablet"
	"github.com/fedb/tabletd/internal/tasks"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	log.Info("starting tabletd", "endpoint", cfg.Endpoint, "db_root_paths", cfg.DBRootPaths)

	for _, root := range cfg.DBRootPaths {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return err
		}
	}

	pools := node.NewPools(cfg.TaskPoolSize, cfg.IOPoolSize, cfg.SnapshotPoolSize, cfg.GCPoolSize)
	_ = pools // not used further by this binary

	paths := node.NewPathSelector(cfg.DBRootPaths)
	_ = paths // not used further by this binary

	recycle := node.NewRecycleBin(cfg.RecycleBinRootPaths, cfg.RecycleBinEnabled, cfg.RecycleTTL())

	tracker := tasks.NewTracker()
	_ = tracker // not used further by this binary

	mgr := tablet.NewManager()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go recycle.RunPurgeLoop(ctx, cfg.RecycleTTL()/4, func(err error) {
		log.Error("recycle bin purge failed", "err", err)
	})

	go node.RunDiskSamplerLoop(ctx, cfg.DBRootPaths, time.Minute, func(samples []node.DiskSample) {
		for _, s := range samples {
			if s.Err != nil {
				log.Warn("disk sample failed", "path", s.Path, "err", s.Err)
				continue
			}
			log.Debug("disk sample", "path", s.Path, "total_bytes", s.TotalBytes, "available_bytes", s.AvailableBytes)
		}
	})

	scheduler := snapshot.NewScheduler(
		cfg.MakeSnapshotTime,
		time.Duration(cfg.MakeSnapshotCheckInterval)*time.Minute,
		time.Duration(cfg.MakeSnapshotOfflineInterval)*time.Minute,
		mgr.Triggers,
	)
	go scheduler.Run(ctx, func(err error) {
		log.Error("scheduled snapshot failed", "err", err)
	})

	cat, err := catalog.New(256)
	if err != nil {
		return err
	}
	watchDir := filepath.Join(cfg.DBRootPaths[0], ".catalog-watch")
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		return err
	}
	watcher, err := catalog.NewWatcher(watchDir, log)
	if err != nil {
		return err
	}
	go watcher.Run(ctx, func() error {
		log.Info("catalog rebuild triggered", "version", cat.Version())
		return nil
	})

	log.Info("tabletd ready, awaiting signal")
	<-ctx.Done()
	log.Info("tabletd shutting down")
	for _, p := range mgr.All() {
		if err := p.Drop(); err != nil {
			log.Warn("error dropping partition during shutdown", "tid", p.TID(), "pid", p.PID(), "err", err)
		}
	}
	return nil
}
