// Package baseline creates, restores, deletes, and compares immutable
// snapshots of all Working records.
package baseline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/example/stpactl/internal/audit"
	"github.com/example/stpactl/internal/fsutil"
	"github.com/example/stpactl/internal/store"
)

// DirName is the snapshot directory under the working directory.
const DirName = "baselines"

// Info describes one baseline for listings.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedDate string `json:"created_date"`
	RecordCount int    `json:"record_count"`
	FileExists  bool   `json:"file_exists"`
}

// TableDiff is the per-table result of comparing two baselines.
type TableDiff struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`
	Total1   int `json:"total_baseline1"`
	Total2   int `json:"total_baseline2"`
}

// Comparison is the full result of comparing two baselines.
type Comparison struct {
	Baseline1 string               `json:"baseline1"`
	Baseline2 string               `json:"baseline2"`
	Tables    map[string]TableDiff `json:"tables"`
	Added     int                  `json:"added_records"`
	Modified  int                  `json:"modified_records"`
	Deleted   int                  `json:"deleted_records"`
}

// TotalDifferences sums all per-kind counts.
func (c *Comparison) TotalDifferences() int {
	return c.Added + c.Modified + c.Deleted
}

// Manager manages baselines for one live store.
type Manager struct {
	store        *store.Store
	baselinesDir string
	trail        *audit.Log
	log          *slog.Logger
}

// NewManager creates a baseline manager rooted at workingDir.
func NewManager(st *store.Store, workingDir string, log *slog.Logger) (*Manager, error) {
	dir := filepath.Join(workingDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create baselines directory: %w", err)
	}
	return &Manager{
		store:        st,
		baselinesDir: dir,
		trail:        audit.NewLog(),
		log:          log,
	}, nil
}

// Create clones every Working row into a new immutable baseline and
// persists a full snapshot of the store file. Name is auto-generated
// from the timestamp when empty. The row cloning and metadata write are
// one transaction; on failure nothing is left behind.
func (m *Manager) Create(ctx context.Context, name, description string) (string, error) {
	if name == "" {
		name = "baseline_" + time.Now().Format("2006-01-02_15-04-05")
	}
	if !store.ValidName(name) {
		return "", fmt.Errorf("baseline name %q: %w", name, store.ErrInvalidName)
	}
	if name == store.WorkingBaseline {
		return "", fmt.Errorf("baseline name %q is reserved: %w", name, store.ErrWorkingBaseline)
	}

	exists, err := m.exists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("baseline %q: %w", name, store.ErrExists)
	}

	m.log.Info("creating baseline", "name", name)

	// Snapshot the file before cloning so the copy holds exactly the
	// Working state; removed again if the transaction fails.
	snapshotPath := m.FilePath(name)
	if err := fsutil.CopyFile(m.store.Path(), snapshotPath); err != nil {
		return "", err
	}

	err = m.store.WithTx(ctx, func(tx *sql.Tx) error {
		cloned := 0
		for _, table := range store.BaselineTables() {
			count, err := store.CloneWorkingRows(ctx, tx, table.Name, name)
			if err != nil {
				return err
			}
			cloned += count
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO baseline_metadata (baseline_name, description, created_date, record_count) VALUES (?, ?, ?, ?)",
			name, description, time.Now().Format(time.RFC3339), cloned)
		if err != nil {
			return fmt.Errorf("failed to write baseline metadata: %w", err)
		}

		_, err = m.trail.Append(ctx, tx, "baseline.create",
			fmt.Sprintf("baseline=%s records=%d", name, cloned))
		return err
	})
	if err != nil {
		os.Remove(snapshotPath)
		return "", fmt.Errorf("failed to create baseline: %w", err)
	}

	m.log.Info("baseline created", "name", name)
	return name, nil
}

// Load restores a baseline snapshot as the live dataset. The current
// store file is backed up next to itself, then overwritten with the
// snapshot and the connection reopened. Read-only-ness of the result is
// a convention for callers, not enforced here.
func (m *Manager) Load(ctx context.Context, name string) (string, error) {
	exists, err := m.exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("baseline %q: %w", name, store.ErrNotFound)
	}
	snapshotPath := m.FilePath(name)
	if !fsutil.Exists(snapshotPath) {
		return "", fmt.Errorf("baseline file for %q: %w", name, store.ErrNotFound)
	}

	m.log.Info("loading baseline", "name", name)

	livePath := m.store.Path()
	backupPath := fmt.Sprintf("%s.backup_%s", livePath, time.Now().Format("20060102_150405"))
	if err := fsutil.CopyFile(livePath, backupPath); err != nil {
		return "", err
	}

	if err := m.store.Close(); err != nil {
		return "", fmt.Errorf("failed to close live store: %w", err)
	}
	if err := fsutil.CopyFile(snapshotPath, livePath); err != nil {
		return "", err
	}
	if err := m.store.Reconnect(); err != nil {
		return "", err
	}

	if _, err := m.trail.Append(ctx, m.store.DB(), "baseline.load",
		fmt.Sprintf("baseline=%s backup=%s", name, filepath.Base(backupPath))); err != nil {
		return "", err
	}

	return fmt.Sprintf("Baseline %q loaded. Database is now read-only by convention; previous data backed up to %s.",
		name, filepath.Base(backupPath)), nil
}

// Delete removes a baseline: its rows in every baseline-bearing table,
// its metadata row, and its snapshot file. The Working baseline can
// never be deleted.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if name == store.WorkingBaseline {
		return store.ErrWorkingBaseline
	}

	exists, err := m.exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("baseline %q: %w", name, store.ErrNotFound)
	}

	m.log.Info("deleting baseline", "name", name)

	err = m.store.WithTx(ctx, func(tx *sql.Tx) error {
		deleted := int64(0)
		for _, table := range store.BaselineTables() {
			res, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE baseline = ?", table.Name), name)
			if err != nil {
				return fmt.Errorf("failed to delete %s rows: %w", table.Name, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				deleted += n
			}
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM baseline_metadata WHERE baseline_name = ?", name); err != nil {
			return fmt.Errorf("failed to delete baseline metadata: %w", err)
		}

		_, err := m.trail.Append(ctx, tx, "baseline.delete",
			fmt.Sprintf("baseline=%s rows=%d", name, deleted))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}

	// File removal cannot participate in the SQL transaction; a stale
	// snapshot file is harmless once the metadata row is gone.
	if err := os.Remove(m.FilePath(name)); err != nil && !os.IsNotExist(err) {
		m.log.Warn("failed to remove baseline file", "name", name, "error", err)
	}

	return nil
}

// List returns all baselines, newest first, with a flag for whether the
// snapshot file still exists on disk.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	rows, err := m.store.DB().QueryContext(ctx,
		"SELECT baseline_name, description, created_date, record_count FROM baseline_metadata ORDER BY created_date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	defer rows.Close()

	var baselines []Info
	for rows.Next() {
		var info Info
		var description sql.NullString
		if err := rows.Scan(&info.Name, &description, &info.CreatedDate, &info.RecordCount); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		info.Description = description.String
		info.FileExists = fsutil.Exists(m.FilePath(info.Name))
		baselines = append(baselines, info)
	}
	return baselines, rows.Err()
}

// Compare diffs two baselines per table. Rows are matched on their
// hierarchical identity (surrogate ids are reassigned during cloning):
// entities only in the second baseline are added, only in the first are
// deleted, and entities in both count as modified when any field
// outside the id/baseline/timestamp set differs.
func (m *Manager) Compare(ctx context.Context, baseline1, baseline2 string) (*Comparison, error) {
	comparison := &Comparison{
		Baseline1: baseline1,
		Baseline2: baseline2,
		Tables:    make(map[string]TableDiff),
	}

	for _, table := range store.BaselineTables() {
		rows1, err := store.RowsByHierarchy(ctx, m.store.DB(), table.Name, baseline1)
		if err != nil {
			return nil, err
		}
		rows2, err := store.RowsByHierarchy(ctx, m.store.DB(), table.Name, baseline2)
		if err != nil {
			return nil, err
		}

		diff := TableDiff{Total1: len(rows1), Total2: len(rows2)}
		for hierarchy, row2 := range rows2 {
			row1, ok := rows1[hierarchy]
			if !ok {
				diff.Added++
				continue
			}
			if store.RowsDiffer(row1, row2) {
				diff.Modified++
			}
		}
		for hierarchy := range rows1 {
			if _, ok := rows2[hierarchy]; !ok {
				diff.Deleted++
			}
		}

		comparison.Tables[table.Name] = diff
		comparison.Added += diff.Added
		comparison.Modified += diff.Modified
		comparison.Deleted += diff.Deleted
	}

	return comparison, nil
}

// FilePath returns the snapshot file path for a baseline name.
func (m *Manager) FilePath(name string) string {
	return filepath.Join(m.baselinesDir, name+".db")
}

func (m *Manager) exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := m.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM baseline_metadata WHERE baseline_name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check baseline existence: %w", err)
	}
	return count > 0, nil
}
