package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the resolved configuration this process would start with",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("endpoint:                %s\n", cfg.Endpoint)
		fmt.Printf("db_root_path:            %v\n", cfg.DBRootPaths)
		fmt.Printf("recycle_bin_root_path:   %v\n", cfg.RecycleBinRootPaths)
		fmt.Printf("recycle_bin_enabled:     %v\n", cfg.RecycleBinEnabled)
		fmt.Printf("recycle_ttl:             %s\n", cfg.RecycleTTL())
		fmt.Printf("make_snapshot_time:      %02d:00\n", cfg.MakeSnapshotTime)
		fmt.Printf("make_snapshot_check:     %dm\n", cfg.MakeSnapshotCheckInterval)
		fmt.Printf("make_snapshot_offline:   %dm\n", cfg.MakeSnapshotOfflineInterval)
		fmt.Printf("file_compression:        %s\n", cfg.FileCompression)
		fmt.Printf("put_slow_log_threshold:  %dms\n", cfg.PutSlowLogThreshold)
		fmt.Printf("query_slow_log_threshold: %dms\n", cfg.QuerySlowLogThreshold)
		fmt.Printf("log_level:               %s\n", cfg.LogLevel)
		return nil
	},
}
