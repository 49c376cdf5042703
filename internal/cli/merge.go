package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/branch"
	"github.com/example/stpactl/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Analyze and merge branches back into the main store",
}

var mergeAnalyzeCmd = &cobra.Command{
	Use:   "analyze [branch]",
	Short: "Detect conflicts between a branch and the main store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		brMgr, err := branch.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}
		mgr := merge.NewManager(p.store, p.log)

		canAuto, analysis, err := mgr.Analyze(cmd.Context(), brMgr.Path(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("Branch: %s (root %s)\n",
			analysis.BranchMetadata.BranchName, analysis.BranchMetadata.RootSystemHierarchy)
		fmt.Printf("New records: %d\n\n", analysis.Changes.Added)

		if canAuto {
			fmt.Println(color.New(color.FgGreen).Sprint("✓ No conflicts, branch can be merged automatically"))
			return nil
		}

		fmt.Printf("%s\n\n", color.New(color.FgRed).Sprintf("%d conflicts detected:", len(analysis.Conflicts)))
		for _, c := range analysis.Conflicts {
			fmt.Printf("  [%s] %s id %d: %s\n", c.Type, c.Table, c.EntityID, c.Description)
		}
		fmt.Println()
		fmt.Println("Resolve with: stpactl merge apply --keep-main table:id ...")
		return nil
	},
}

var mergeApplyCmd = &cobra.Command{
	Use:   "apply [branch]",
	Short: "Merge a branch into the main store",
	Long: `Merge a branch's records into the main store in one transaction.
Conflicted merges are refused until every conflict has a resolution;
--keep-main table:id keeps the main-side version of a conflicting row.
The branch directory is kept after merging.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keepMain, _ := cmd.Flags().GetStringArray("keep-main")

		resolutions, err := parseResolutions(keepMain)
		if err != nil {
			return err
		}

		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		brMgr, err := branch.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}
		mgr := merge.NewManager(p.store, p.log)

		msg, err := mgr.Merge(cmd.Context(), brMgr.Path(args[0]), resolutions)
		if err != nil {
			return err
		}

		fmt.Printf("✓ %s\n", msg)
		return nil
	},
}

// parseResolutions turns "table:id" flag values into keep-main
// resolutions keyed the same way conflicts are.
func parseResolutions(keepMain []string) (map[string]merge.Resolution, error) {
	if len(keepMain) == 0 {
		return nil, nil
	}

	resolutions := make(map[string]merge.Resolution, len(keepMain))
	for _, arg := range keepMain {
		table, idStr, ok := strings.Cut(arg, ":")
		if !ok || table == "" {
			return nil, fmt.Errorf("invalid resolution %q: expected table:id", arg)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid resolution %q: %w", arg, err)
		}
		resolutions[arg] = merge.Resolution{
			Action:   merge.KeepMain,
			Table:    table,
			EntityID: id,
		}
	}
	return resolutions, nil
}

func init() {
	mergeApplyCmd.Flags().StringArray("keep-main", nil, "Keep the main-side row for a conflict (table:id, repeatable)")

	mergeCmd.AddCommand(mergeAnalyzeCmd)
	mergeCmd.AddCommand(mergeApplyCmd)
}

// MergeCmd returns the merge command
func MergeCmd() *cobra.Command {
	return mergeCmd
}
