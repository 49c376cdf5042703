// Package merge reconciles a branch copy back into the main store:
// conflict analysis first, then a transactional, all-or-nothing apply.
package merge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/stpactl/internal/audit"
	"github.com/example/stpactl/internal/branch"
	"github.com/example/stpactl/internal/fsutil"
	"github.com/example/stpactl/internal/store"
)

var (
	// ErrConflicts blocks a merge while conflicts are unresolved.
	ErrConflicts = errors.New("merge conflicts must be resolved")
	// ErrBranchStructure reports a branch directory missing required files.
	ErrBranchStructure = errors.New("invalid branch structure")
)

// Changes summarizes what a branch would contribute. Deletions cannot
// be detected without provenance tracking of the branch's original
// state, so only additions are counted.
type Changes struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`
}

// Total sums all change counts.
func (c Changes) Total() int {
	return c.Added + c.Modified + c.Deleted
}

// Analysis is the result of comparing a branch against the main store.
type Analysis struct {
	BranchMetadata *branch.Metadata `json:"branch_metadata"`
	Conflicts      []Conflict       `json:"conflicts"`
	Changes        Changes          `json:"changes"`
	CanAutoMerge   bool             `json:"can_auto_merge"`
}

// Manager merges branches into one main store.
type Manager struct {
	store *store.Store
	trail *audit.Log
	log   *slog.Logger
}

// NewManager creates a merge manager for the main store.
func NewManager(st *store.Store, log *slog.Logger) *Manager {
	return &Manager{
		store: st,
		trail: audit.NewLog(),
		log:   log,
	}
}

// Analyze compares a branch copy against the main store. For every
// entity id present on both sides, a differing hierarchical identity
// emits a hierarchical_id conflict and any other field difference
// independently emits a duplicate_entity conflict. The branch is
// auto-mergeable iff no conflicts were found.
func (m *Manager) Analyze(ctx context.Context, branchPath string) (bool, *Analysis, error) {
	if err := validateBranch(branchPath); err != nil {
		return false, nil, err
	}

	meta, err := branch.ReadMetadata(branchPath)
	if err != nil {
		return false, nil, err
	}

	branchStore, err := store.OpenReadOnly(filepath.Join(branchPath, branch.StoreFileName))
	if err != nil {
		return false, nil, err
	}
	defer branchStore.Close()

	analysis := &Analysis{BranchMetadata: meta}
	for _, table := range store.MergeableTables() {
		_, branchRows, err := store.WorkingRows(ctx, branchStore.DB(), table.Name)
		if err != nil {
			return false, nil, err
		}
		_, mainRows, err := store.WorkingRows(ctx, m.store.DB(), table.Name)
		if err != nil {
			return false, nil, err
		}

		for id, branchRow := range branchRows {
			mainRow, inMain := mainRows[id]
			if !inMain {
				analysis.Changes.Added++
				continue
			}

			mainHierarchy, _ := mainRow["system_hierarchy"].(string)
			branchHierarchy, _ := branchRow["system_hierarchy"].(string)
			if mainHierarchy != branchHierarchy {
				analysis.Conflicts = append(analysis.Conflicts, Conflict{
					Type:       ConflictHierarchicalID,
					Table:      table.Name,
					EntityID:   id,
					MainData:   mainRow,
					BranchData: branchRow,
					Description: fmt.Sprintf("Hierarchical ID conflict: main=%q, branch=%q",
						mainHierarchy, branchHierarchy),
				})
			}

			if entityDataDiffers(mainRow, branchRow) {
				analysis.Conflicts = append(analysis.Conflicts, Conflict{
					Type:        ConflictDuplicateEntity,
					Table:       table.Name,
					EntityID:    id,
					MainData:    mainRow,
					BranchData:  branchRow,
					Description: fmt.Sprintf("Entity data conflicts detected for ID %d", id),
				})
			}
		}
	}

	sort.SliceStable(analysis.Conflicts, func(i, j int) bool {
		a, b := analysis.Conflicts[i], analysis.Conflicts[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Type < b.Type
	})

	analysis.CanAutoMerge = len(analysis.Conflicts) == 0
	return analysis.CanAutoMerge, analysis, nil
}

// Merge reconciles a branch into the main store. Conflicted merges are
// refused unless resolutions are supplied; keep_main resolutions delete
// the conflicting row from the branch copy before merging. The merge
// itself runs in one transaction on main: every Working branch row
// whose id is absent from main is inserted verbatim with a fresh id,
// rows for existing ids are left untouched, and one merge_log entry is
// written. Any failure rolls the whole transaction back. The branch is
// never deleted by merging.
func (m *Manager) Merge(ctx context.Context, branchPath string, resolutions map[string]Resolution) (string, error) {
	canAuto, analysis, err := m.Analyze(ctx, branchPath)
	if err != nil {
		return "", err
	}
	if !canAuto && len(resolutions) == 0 {
		return "", fmt.Errorf("%w: %d conflicts detected", ErrConflicts, len(analysis.Conflicts))
	}

	m.log.Info("merging branch", "branch", analysis.BranchMetadata.BranchName, "path", branchPath)

	// keep_main may drop a branch system that branch-side child rows
	// still reference; those children are reconciled against main.
	branchStore, err := store.OpenRelaxed(filepath.Join(branchPath, branch.StoreFileName))
	if err != nil {
		return "", err
	}
	defer branchStore.Close()

	if err := applyResolutions(ctx, branchStore, resolutions); err != nil {
		return "", err
	}

	mergeID := uuid.NewString()
	mergedCount := 0
	err = m.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range store.MergeableTables() {
			count, err := m.mergeTable(ctx, tx, branchStore, table.Name)
			if err != nil {
				return err
			}
			mergedCount += count
			m.log.Debug("merged table", "table", table.Name, "records", count)
		}

		if err := writeMergeLog(ctx, tx, mergeID, analysis.BranchMetadata, mergedCount, len(resolutions)); err != nil {
			return err
		}

		_, err := m.trail.Append(ctx, tx, "merge.apply",
			fmt.Sprintf("merge_id=%s branch=%s records=%d conflicts_resolved=%d",
				mergeID, analysis.BranchMetadata.BranchName, mergedCount, len(resolutions)))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to merge branch: %w", err)
	}

	return fmt.Sprintf("Branch merged successfully. %d records merged.", mergedCount), nil
}

// entityDataDiffers compares every column outside the shared ignore
// set. system_hierarchy is excluded here because its divergence is the
// hierarchical_id conflict; the component columns (type, level,
// sequential) stay in, so an identity edit that bypasses the hierarchy
// string still surfaces as a conflict instead of being silently
// skipped by the merge.
func entityDataDiffers(a, b store.Row) bool {
	for col, av := range a {
		if store.IgnoredDiffColumns[col] || col == "system_hierarchy" {
			continue
		}
		if av != b[col] {
			return true
		}
	}
	return false
}

func validateBranch(branchPath string) error {
	for _, name := range []string{branch.StoreFileName, branch.MetadataFileName} {
		if !fsutil.Exists(filepath.Join(branchPath, name)) {
			return fmt.Errorf("%w: missing %s", ErrBranchStructure, name)
		}
	}
	return nil
}

// applyResolutions edits the branch-side copy before the merge runs.
// Only keep_main has an effect: the conflicting branch row is deleted
// so the main-side version survives. Table names are caller input and
// must match the registry before reaching the statement.
func applyResolutions(ctx context.Context, branchStore *store.Store, resolutions map[string]Resolution) error {
	if len(resolutions) == 0 {
		return nil
	}

	mergeable := make(map[string]bool)
	for _, table := range store.MergeableTables() {
		mergeable[table.Name] = true
	}

	for key, res := range resolutions {
		if res.Action != KeepMain {
			continue
		}
		if !mergeable[res.Table] {
			return fmt.Errorf("resolution %s targets unknown table %q", key, res.Table)
		}
		_, err := branchStore.DB().ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE id = ?", res.Table), res.EntityID)
		if err != nil {
			return fmt.Errorf("failed to apply resolution %s: %w", key, err)
		}
	}
	return nil
}

func (m *Manager) mergeTable(ctx context.Context, tx *sql.Tx, branchStore *store.Store, table string) (int, error) {
	cols, branchRows, err := store.WorkingRows(ctx, branchStore.DB(), table)
	if err != nil {
		return 0, err
	}

	ids := make([]int64, 0, len(branchRows))
	for id := range branchRows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	merged := 0
	for _, id := range ids {
		var count int
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table), id).Scan(&count)
		if err != nil {
			return merged, fmt.Errorf("failed to check %s id %d: %w", table, id, err)
		}
		if count > 0 {
			continue
		}

		if err := store.InsertRowExceptID(ctx, tx, table, cols, branchRows[id]); err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}

func writeMergeLog(ctx context.Context, tx *sql.Tx, mergeID string, meta *branch.Metadata, merged, resolved int) error {
	blob, err := json.Marshal(struct {
		MergeID string           `json:"merge_id"`
		Branch  *branch.Metadata `json:"branch"`
	}{MergeID: mergeID, Branch: meta})
	if err != nil {
		return fmt.Errorf("failed to marshal merge metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO merge_log (merge_date, branch_name, branch_description, root_system_id, merged_records, conflicts_resolved, merge_metadata) VALUES (?, ?, ?, ?, ?, ?, ?)",
		time.Now().Format(time.RFC3339), meta.BranchName, meta.Description,
		meta.RootSystemID, merged, resolved, string(blob))
	if err != nil {
		return fmt.Errorf("failed to write merge log: %w", err)
	}
	return nil
}
