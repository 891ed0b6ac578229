package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fedb/tabletd/internal/node"
)

var pathCmd = &cobra.Command{
	Use:   "path <tid> <pid>",
	Short: "print the data directory a partition is assigned to on this node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tid, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid tid %q: %w", args[0], err)
		}
		pid, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid pid %q: %w", args[1], err)
		}
		sel := node.NewPathSelector(cfg.DBRootPaths)
		fmt.Println(sel.DBPath(uint32(tid), uint32(pid)))
		return nil
	},
}
