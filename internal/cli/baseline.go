package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/baseline"
	"github.com/example/stpactl/internal/store"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage baselines (immutable snapshots of the working dataset)",
	Long:  "Create, list, compare, load, and delete baselines of the analysis store",
}

var baselineCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a baseline from the current working dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		description, _ := cmd.Flags().GetString("description")

		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := baseline.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		created, err := mgr.Create(cmd.Context(), name, description)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Created baseline %s\n", created)
		return nil
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List baselines, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := baseline.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		baselines, err := mgr.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(baselines) == 0 {
			fmt.Println("No baselines found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCREATED\tRECORDS\tFILE\tDESCRIPTION")
		fmt.Fprintln(w, "----\t-------\t-------\t----\t-----------")
		for _, b := range baselines {
			fileMark := color.New(color.FgGreen).Sprint("ok")
			if !b.FileExists {
				fileMark = color.New(color.FgRed).Sprint("missing")
			}
			description := b.Description
			if description == "" {
				description = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", b.Name, b.CreatedDate, b.RecordCount, fileMark, description)
		}
		w.Flush()
		return nil
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a baseline and its snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := baseline.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("✓ Baseline %s deleted\n", args[0])
		return nil
	},
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare [baseline1] [baseline2]",
	Short: "Compare two baselines (use \"Working\" for the live dataset)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := baseline.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		comparison, err := mgr.Compare(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Comparing %s -> %s\n\n", comparison.Baseline1, comparison.Baseline2)

		if comparison.TotalDifferences() == 0 {
			fmt.Println(color.New(color.FgGreen).Sprint("No differences"))
			return nil
		}

		tables := make([]string, 0, len(comparison.Tables))
		for name := range comparison.Tables {
			tables = append(tables, name)
		}
		sort.Strings(tables)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tADDED\tMODIFIED\tDELETED")
		fmt.Fprintln(w, "-----\t-----\t--------\t-------")
		for _, name := range tables {
			diff := comparison.Tables[name]
			if diff.Added == 0 && diff.Modified == 0 && diff.Deleted == 0 {
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", name, diff.Added, diff.Modified, diff.Deleted)
		}
		w.Flush()

		fmt.Printf("\nTotal: %s added, %s modified, %s deleted\n",
			color.New(color.FgGreen).Sprintf("%d", comparison.Added),
			color.New(color.FgYellow).Sprintf("%d", comparison.Modified),
			color.New(color.FgRed).Sprintf("%d", comparison.Deleted))
		return nil
	},
}

var baselineLoadCmd = &cobra.Command{
	Use:   "load [name]",
	Short: "Restore a baseline snapshot as the live dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := baseline.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		msg, err := mgr.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		p.cfg.CurrentBaseline = args[0]
		if err := p.saveConfig(); err != nil {
			return err
		}

		fmt.Printf("✓ %s\n", msg)
		return nil
	},
}

var baselineUnloadCmd = &cobra.Command{
	Use:   "unload",
	Short: "Mark the live dataset as Working again after a baseline load",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		p.cfg.CurrentBaseline = store.WorkingBaseline
		if err := p.saveConfig(); err != nil {
			return err
		}

		fmt.Println("✓ Dataset marked as Working")
		return nil
	},
}

func init() {
	baselineCreateCmd.Flags().StringP("description", "d", "", "Baseline description")

	baselineCmd.AddCommand(baselineCreateCmd)
	baselineCmd.AddCommand(baselineListCmd)
	baselineCmd.AddCommand(baselineDeleteCmd)
	baselineCmd.AddCommand(baselineCompareCmd)
	baselineCmd.AddCommand(baselineLoadCmd)
	baselineCmd.AddCommand(baselineUnloadCmd)
}

// BaselineCmd returns the baseline command
func BaselineCmd() *cobra.Command {
	return baselineCmd
}
