package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/cli"
	"github.com/example/stpactl/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "stpactl",
		Short:   "stpactl - versioning for safety analysis projects",
		Version: version.String(),
		Long: `stpactl manages the versioning layer of a safety analysis store:
baselines (immutable snapshots), branches (isolated subtree copies for
collaboration), and merges with conflict detection.`,
	}

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.BaselineCmd())
	rootCmd.AddCommand(cli.BranchCmd())
	rootCmd.AddCommand(cli.MergeCmd())
	rootCmd.AddCommand(cli.IDCmd())
	rootCmd.AddCommand(cli.AuditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
