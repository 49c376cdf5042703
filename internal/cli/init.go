package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/stpactl/internal/config"
	"github.com/example/stpactl/internal/db"
	"github.com/example/stpactl/internal/store"
)

const defaultDatabaseFile = "stpa.db"

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var projectName string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an stpactl project in the current directory",
		Long: `Create a new stpactl project: an empty analysis store with the full
schema, a config.json, and the baselines/ and branches/ directories.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			if _, err := config.LoadConfig(cwd); err == nil {
				return fmt.Errorf("directory already contains an stpactl project")
			}

			if projectName == "" {
				projectName = filepath.Base(cwd)
			}

			dbPath := filepath.Join(cwd, defaultDatabaseFile)
			fmt.Printf("Initializing project %q at %s\n", projectName, dbPath)

			conn, err := db.Init(dbPath)
			if err != nil {
				return err
			}
			conn.Close()

			cfg := &config.Config{
				Version:         db.SchemaVersion,
				ProjectName:     projectName,
				DatabasePath:    defaultDatabaseFile,
				CurrentBaseline: store.WorkingBaseline,
			}
			if err := config.SaveConfig(cwd, cfg); err != nil {
				return err
			}

			for _, dir := range []string{"baselines", "branches", "diagrams"} {
				if err := os.MkdirAll(filepath.Join(cwd, dir), 0755); err != nil {
					return fmt.Errorf("failed to create %s directory: %w", dir, err)
				}
			}

			fmt.Println("✓ Project initialized successfully")
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  stpactl status")
			fmt.Println("  stpactl baseline create --description \"initial state\"")

			return nil
		},
	}

	cmd.Flags().StringVarP(&projectName, "name", "n", "", "Project name (defaults to directory name)")
	return cmd
}
