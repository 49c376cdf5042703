package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/hierarchy"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Work with hierarchical identifiers",
	Long:  "Parse, validate, sort, and generate the hierarchical IDs used across the analysis store",
}

var idParseCmd = &cobra.Command{
	Use:   "parse [id]",
	Short: "Parse and validate a hierarchical ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := hierarchy.Parse(args[0])
		if err != nil {
			return err
		}
		if err := hierarchy.Validate(id); err != nil {
			return err
		}

		fmt.Printf("ID: %s\n", id)
		fmt.Printf("  Type: %s\n", id.Type)
		fmt.Printf("  Level: %d\n", id.Level)
		fmt.Printf("  Sequential: %d\n", id.Seq)
		fmt.Printf("  Depth: %d\n", hierarchy.Depth(id))
		if parent, ok := hierarchy.ParentHierarchy(id); ok {
			fmt.Printf("  Parent: %s\n", parent)
		}
		return nil
	},
}

var idChildCmd = &cobra.Command{
	Use:   "child [parent-id] [sequential]",
	Short: "Generate a child ID from a parent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, err := hierarchy.Parse(args[0])
		if err != nil {
			return err
		}
		seq, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid sequential value %q: %w", args[1], err)
		}

		child, err := hierarchy.GenerateChild(parent, seq)
		if err != nil {
			return err
		}
		fmt.Println(child)
		return nil
	},
}

var idNextCmd = &cobra.Command{
	Use:   "next [type] [level] [existing-ids...]",
	Short: "Find the next free sequential value among existing IDs",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid level %q: %w", args[1], err)
		}

		next := hierarchy.FindNextSequential(args[2:], args[0], level)
		fmt.Println(next)
		return nil
	},
}

var idSortCmd = &cobra.Command{
	Use:   "sort [ids...]",
	Short: "Sort IDs by type, level, and sequential value",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sorted, unparsable := hierarchy.Sort(args)
		for _, s := range sorted {
			fmt.Println(s)
		}
		if len(unparsable) > 0 {
			fmt.Printf("%s %v\n", color.New(color.FgYellow).Sprint("Unparsable (kept in place):"), unparsable)
		}
		return nil
	},
}

func init() {
	idCmd.AddCommand(idParseCmd)
	idCmd.AddCommand(idChildCmd)
	idCmd.AddCommand(idNextCmd)
	idCmd.AddCommand(idSortCmd)
}

// IDCmd returns the id command
func IDCmd() *cobra.Command {
	return idCmd
}
