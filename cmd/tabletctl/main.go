// Command tabletctl is a thin operator CLI for inspecting a tabletd
// node's on-disk layout and resolved configuration. It talks to
// nothing over the network: there is no RPC transport in scope here,
// so tabletctl only reads local state (config file, db root paths).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fedb/tabletd/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tabletctl",
	Short: "tabletctl - tabletd operator CLI",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a tabletd TOML config file")
	rootCmd.AddCommand(configCmd, pathCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
