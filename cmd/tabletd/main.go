// Command tabletd runs one tablet server node: it starts the background
// snapshot scheduler, recycle-bin purge loop, disk sampler, and catalog
// watcher over an empty partition manager (no partitions are loaded
// from disk), and serves until signaled to stop.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tabletd",
	Short: "tabletd - distributed time-series tablet server node",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a tabletd TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
