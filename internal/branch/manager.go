// Package branch extracts and manages isolated subtree copies of the
// store for collaborative editing.
package branch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/example/stpactl/internal/fsutil"
	"github.com/example/stpactl/internal/store"
)

// DirName is the branches directory under the working directory.
const DirName = "branches"

// StoreFileName is the branch store file inside each branch directory.
const StoreFileName = "store.db"

// Info is branch metadata plus filesystem state for listings.
type Info struct {
	Metadata
	BranchPath   string         `json:"branch_path"`
	StoreExists  bool           `json:"store_exists"`
	StoreSize    int64          `json:"store_size,omitempty"`
	WorkingCount map[string]int `json:"working_count,omitempty"`
}

// Manager creates and manages branches of one main store.
type Manager struct {
	store       *store.Store
	workingDir  string
	branchesDir string
	log         *slog.Logger
}

// NewManager creates a branch manager rooted at workingDir.
func NewManager(st *store.Store, workingDir string, log *slog.Logger) (*Manager, error) {
	dir := filepath.Join(workingDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create branches directory: %w", err)
	}
	return &Manager{
		store:       st,
		workingDir:  workingDir,
		branchesDir: dir,
		log:         log,
	}, nil
}

// Create extracts a branch: a full physical copy of the main store
// filtered down to rootSystemID and all of its descendants. Branch
// creation cost is proportional to total store size, not subtree size.
// On any failure the partially created branch directory is removed.
func (m *Manager) Create(ctx context.Context, rootSystemID int64, name, description string) (string, error) {
	if !store.ValidName(name) {
		return "", fmt.Errorf("branch name %q: %w", name, store.ErrInvalidName)
	}

	branchPath := filepath.Join(m.branchesDir, name)
	if fsutil.Exists(branchPath) {
		return "", fmt.Errorf("branch %q: %w", name, store.ErrExists)
	}

	root, err := store.SystemByID(ctx, m.store.DB(), rootSystemID)
	if err != nil {
		return "", err
	}

	m.log.Info("creating branch", "name", name, "root_system", root.SystemName)

	if err := os.MkdirAll(branchPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create branch directory: %w", err)
	}

	created := false
	defer func() {
		if !created {
			os.RemoveAll(branchPath)
		}
	}()

	if err := m.buildBranchStore(ctx, rootSystemID, filepath.Join(branchPath, StoreFileName)); err != nil {
		return "", err
	}

	meta := &Metadata{
		BranchName:          name,
		Description:         description,
		RootSystemID:        root.ID,
		RootSystemName:      root.SystemName,
		RootSystemHierarchy: root.SystemHierarchy,
		CreatedDate:         time.Now().Format(time.RFC3339),
		ParentProject:       filepath.Base(m.workingDir),
		CreatedFromBaseline: store.WorkingBaseline,
	}
	if err := WriteMetadata(branchPath, meta); err != nil {
		return "", err
	}

	for _, sub := range []string{"diagrams", "baselines", "temp"} {
		if err := os.MkdirAll(filepath.Join(branchPath, sub), 0755); err != nil {
			return "", fmt.Errorf("failed to create branch %s directory: %w", sub, err)
		}
	}

	created = true
	m.log.Info("branch created", "name", name, "path", branchPath)
	return branchPath, nil
}

// List returns all branches, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.branchesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read branches directory: %w", err)
	}

	var branches []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		branchPath := filepath.Join(m.branchesDir, entry.Name())
		meta, err := ReadMetadata(branchPath)
		if err != nil {
			m.log.Warn("skipping branch with unreadable metadata", "branch", entry.Name(), "error", err)
			continue
		}
		branches = append(branches, Info{
			Metadata:    *meta,
			BranchPath:  branchPath,
			StoreExists: fsutil.Exists(filepath.Join(branchPath, StoreFileName)),
		})
	}

	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].CreatedDate > branches[j].CreatedDate
	})
	return branches, nil
}

// Delete irreversibly removes a branch directory tree.
func (m *Manager) Delete(name string) error {
	branchPath := filepath.Join(m.branchesDir, name)
	if !fsutil.Exists(branchPath) {
		return fmt.Errorf("branch %q: %w", name, store.ErrNotFound)
	}

	m.log.Info("deleting branch", "name", name)
	if err := os.RemoveAll(branchPath); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}

// GetInfo returns branch metadata plus live statistics read from the
// branch store without write access.
func (m *Manager) GetInfo(ctx context.Context, name string) (*Info, error) {
	branchPath := filepath.Join(m.branchesDir, name)
	if !fsutil.Exists(branchPath) {
		return nil, fmt.Errorf("branch %q: %w", name, store.ErrNotFound)
	}

	meta, err := ReadMetadata(branchPath)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Metadata:   *meta,
		BranchPath: branchPath,
	}

	storePath := filepath.Join(branchPath, StoreFileName)
	stat, err := os.Stat(storePath)
	if err != nil {
		return info, nil
	}
	info.StoreExists = true
	info.StoreSize = stat.Size()

	counts, err := m.workingCounts(ctx, storePath)
	if err != nil {
		m.log.Warn("failed to read branch statistics", "branch", name, "error", err)
		return info, nil
	}
	info.WorkingCount = counts
	return info, nil
}

// Path returns the directory path for a branch name.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.branchesDir, name)
}

// buildBranchStore copies the whole main store file and then filters it
// to the resolved subtree in one transaction on the copy. How each
// table is scoped comes from the static registry: systems by hierarchy
// membership, child entity tables by system id, global tables not at
// all.
func (m *Manager) buildBranchStore(ctx context.Context, rootSystemID int64, branchStorePath string) error {
	if err := fsutil.CopyFile(m.store.Path(), branchStorePath); err != nil {
		return err
	}

	descendants, err := store.DescendantSystemIDs(ctx, m.store.DB(), rootSystemID)
	if err != nil {
		return err
	}
	subtreeIDs := append([]int64{rootSystemID}, descendants...)

	hierarchies, err := store.SubtreeHierarchies(ctx, m.store.DB(), subtreeIDs)
	if err != nil {
		return err
	}

	// Filtering intentionally severs out-of-subtree references: deleted
	// systems are still referenced by rows removed later in the same
	// pass, and a branch rooted below the top loses its parent link.
	branchStore, err := store.OpenRelaxed(branchStorePath)
	if err != nil {
		return err
	}
	defer branchStore.Close()

	return branchStore.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range store.Tables() {
			switch table.Strategy {
			case store.FilterHierarchy:
				args := make([]any, len(hierarchies))
				for i, h := range hierarchies {
					args[i] = h
				}
				query := fmt.Sprintf("DELETE FROM %s WHERE system_hierarchy NOT IN (%s)",
					table.Name, store.Placeholders(len(hierarchies)))
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("failed to filter %s: %w", table.Name, err)
				}

			case store.FilterSystemID:
				args := make([]any, len(subtreeIDs))
				for i, id := range subtreeIDs {
					args[i] = id
				}
				query := fmt.Sprintf("DELETE FROM %s WHERE system_id NOT IN (%s)",
					table.Name, store.Placeholders(len(subtreeIDs)))
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("failed to filter %s: %w", table.Name, err)
				}
			}
		}
		return nil
	})
}

func (m *Manager) workingCounts(ctx context.Context, storePath string) (map[string]int, error) {
	branchStore, err := store.OpenReadOnly(storePath)
	if err != nil {
		return nil, err
	}
	defer branchStore.Close()

	counts := make(map[string]int)
	for _, table := range store.MergeableTables() {
		count, err := store.CountWorkingRows(ctx, branchStore.DB(), table.Name)
		if err != nil {
			return nil, err
		}
		counts[table.Name] = count
	}
	return counts, nil
}
