package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/branch"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches (isolated subtree copies for collaboration)",
	Long:  "Create, list, inspect, and delete branches extracted from a system subtree",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a branch from a system subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootSystemID, _ := cmd.Flags().GetInt64("system")
		description, _ := cmd.Flags().GetString("description")
		if rootSystemID == 0 {
			return fmt.Errorf("must specify --system with the root system id")
		}

		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := branch.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		branchPath, err := mgr.Create(cmd.Context(), rootSystemID, args[0], description)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Created branch %s\n", args[0])
		fmt.Printf("  Path: %s\n", branchPath)
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := branch.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		branches, err := mgr.List()
		if err != nil {
			return err
		}
		if len(branches) == 0 {
			fmt.Println("No branches found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tROOT SYSTEM\tCREATED\tSTORE")
		fmt.Fprintln(w, "----\t-----------\t-------\t-----")
		for _, b := range branches {
			storeMark := color.New(color.FgGreen).Sprint("ok")
			if !b.StoreExists {
				storeMark = color.New(color.FgRed).Sprint("missing")
			}
			fmt.Fprintf(w, "%s\t%s (%s)\t%s\t%s\n",
				b.BranchName, b.RootSystemName, b.RootSystemHierarchy, b.CreatedDate, storeMark)
		}
		w.Flush()
		return nil
	},
}

var branchInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show branch metadata and store statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := branch.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		info, err := mgr.GetInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Branch: %s\n", info.BranchName)
		if info.Description != "" {
			fmt.Printf("Description: %s\n", info.Description)
		}
		fmt.Printf("Root system: %s (%s, id %d)\n",
			info.RootSystemName, info.RootSystemHierarchy, info.RootSystemID)
		fmt.Printf("Created: %s\n", info.CreatedDate)
		fmt.Printf("Parent project: %s\n", info.ParentProject)
		fmt.Printf("Created from: %s\n", info.CreatedFromBaseline)
		fmt.Printf("Path: %s\n", info.BranchPath)

		if !info.StoreExists {
			fmt.Println(color.New(color.FgRed).Sprint("Store file is missing"))
			return nil
		}
		fmt.Printf("Store size: %d bytes\n", info.StoreSize)

		if len(info.WorkingCount) > 0 {
			tables := make([]string, 0, len(info.WorkingCount))
			for name := range info.WorkingCount {
				tables = append(tables, name)
			}
			sort.Strings(tables)

			fmt.Println("Working records:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range tables {
				if info.WorkingCount[name] == 0 {
					continue
				}
				fmt.Fprintf(w, "  %s\t%d\n", name, info.WorkingCount[name])
			}
			w.Flush()
		}
		return nil
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a branch directory (irreversible)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		defer p.Close()

		mgr, err := branch.NewManager(p.store, p.workingDir, p.log)
		if err != nil {
			return err
		}

		if err := mgr.Delete(args[0]); err != nil {
			return err
		}

		fmt.Printf("✓ Branch %s deleted\n", args[0])
		return nil
	},
}

func init() {
	branchCreateCmd.Flags().Int64P("system", "s", 0, "Root system id for the branch subtree")
	branchCreateCmd.Flags().StringP("description", "d", "", "Branch description")

	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchListCmd)
	branchCmd.AddCommand(branchInfoCmd)
	branchCmd.AddCommand(branchDeleteCmd)
}

// BranchCmd returns the branch command
func BranchCmd() *cobra.Command {
	return branchCmd
}
