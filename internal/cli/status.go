package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/baseline"
	"github.com/example/stpactl/internal/branch"
	"github.com/example/stpactl/internal/store"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project state: working records, baselines, branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject()
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := cmd.Context()

			fmt.Printf("Project: %s\n", p.cfg.ProjectName)
			fmt.Printf("Store:   %s\n", p.store.Path())
			current := p.cfg.CurrentBaseline
			if current == "" || current == store.WorkingBaseline {
				fmt.Printf("Dataset: %s\n", color.New(color.FgGreen).Sprint(store.WorkingBaseline))
			} else {
				fmt.Printf("Dataset: %s %s\n",
					color.New(color.FgYellow).Sprint(current),
					color.New(color.FgHiBlack).Sprint("(loaded baseline, read-only by convention)"))
			}
			fmt.Println()

			total := 0
			counts := make(map[string]int)
			for _, table := range store.MergeableTables() {
				count, err := store.CountWorkingRows(ctx, p.store.DB(), table.Name)
				if err != nil {
					return err
				}
				counts[table.Name] = count
				total += count
			}
			fmt.Printf("Working records: %d\n", total)

			if verbose {
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				for _, table := range store.MergeableTables() {
					fmt.Fprintf(w, "  %s\t%d\n", table.Name, counts[table.Name])
				}
				w.Flush()
			}
			fmt.Println()

			blMgr, err := baseline.NewManager(p.store, p.workingDir, p.log)
			if err != nil {
				return err
			}
			baselines, err := blMgr.List(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Baselines: %d\n", len(baselines))

			brMgr, err := branch.NewManager(p.store, p.workingDir, p.log)
			if err != nil {
				return err
			}
			branches, err := brMgr.List()
			if err != nil {
				return err
			}
			fmt.Printf("Branches:  %d\n", len(branches))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-table record counts")
	return cmd
}
