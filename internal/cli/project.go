// Package cli wires the stpactl commands to the versioning managers.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/stpactl/internal/config"
	"github.com/example/stpactl/internal/logging"
	"github.com/example/stpactl/internal/store"
)

// project is an opened stpactl working directory: its config, live
// store, and logger. Commands obtain one through openProject and must
// Close it.
type project struct {
	workingDir string
	cfg        *config.Config
	store      *store.Store
	log        *slog.Logger
}

// openProject loads config.json from the current directory and opens
// the live store it points at.
func openProject() (*project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return nil, fmt.Errorf("no stpactl project in %s (run `stpactl init` first): %w", cwd, err)
	}

	st, err := store.Open(filepath.Join(cwd, cfg.DatabasePath))
	if err != nil {
		return nil, err
	}

	return &project{
		workingDir: cwd,
		cfg:        cfg,
		store:      st,
		log:        logging.Default(),
	}, nil
}

func (p *project) Close() error {
	return p.store.Close()
}

// saveConfig persists the in-memory config back to the working
// directory.
func (p *project) saveConfig() error {
	return config.SaveConfig(p.workingDir, p.cfg)
}
