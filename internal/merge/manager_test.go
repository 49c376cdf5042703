package merge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/stpactl/internal/merge"
	"github.com/example/stpactl/internal/store"
)

func TestAnalyzeCleanBranch(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "clean")

	mgr := merge.NewManager(st, testLogger())
	canAuto, analysis, err := mgr.Analyze(ctx, branchPath)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !canAuto {
		t.Errorf("fresh branch should auto-merge, conflicts: %v", analysis.Conflicts)
	}
	if analysis.Changes.Added != 0 {
		t.Errorf("fresh branch added = %d, want 0", analysis.Changes.Added)
	}
	if analysis.BranchMetadata.BranchName != "clean" {
		t.Errorf("metadata name = %q", analysis.BranchMetadata.BranchName)
	}
}

func TestAnalyzeCountsAdditions(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "additions")

	execBranch(t, branchPath,
		"INSERT INTO functions (system_hierarchy, system_id, function_name) VALUES (?, ?, ?)",
		"F-9", sysID, "Monitor")

	mgr := merge.NewManager(st, testLogger())
	canAuto, analysis, err := mgr.Analyze(ctx, branchPath)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !canAuto {
		t.Errorf("additions alone must not conflict: %v", analysis.Conflicts)
	}
	if analysis.Changes.Added != 1 {
		t.Errorf("added = %d, want 1", analysis.Changes.Added)
	}
}

func TestAnalyzeDetectsConflicts(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	fnID := seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "conflicted")

	// The same entity diverges on both sides.
	if _, err := st.DB().Exec(
		"UPDATE functions SET function_name = 'Navigate (main)' WHERE id = ?", fnID); err != nil {
		t.Fatalf("main update: %v", err)
	}
	execBranch(t, branchPath,
		"UPDATE functions SET function_name = 'Navigate (branch)' WHERE id = ?", fnID)

	mgr := merge.NewManager(st, testLogger())
	canAuto, analysis, err := mgr.Analyze(ctx, branchPath)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if canAuto {
		t.Error("diverged entity must block auto-merge")
	}
	if len(analysis.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(analysis.Conflicts))
	}

	c := analysis.Conflicts[0]
	if c.Type != merge.ConflictDuplicateEntity || c.Table != "functions" || c.EntityID != fnID {
		t.Errorf("unexpected conflict: %+v", c)
	}
	if c.MainData["function_name"] != "Navigate (main)" {
		t.Errorf("main data = %v", c.MainData["function_name"])
	}
	if c.BranchData["function_name"] != "Navigate (branch)" {
		t.Errorf("branch data = %v", c.BranchData["function_name"])
	}
}

func TestAnalyzeDetectsHierarchyConflict(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	fnID := seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "renumbered")

	execBranch(t, branchPath,
		"UPDATE functions SET system_hierarchy = 'F-2' WHERE id = ?", fnID)

	mgr := merge.NewManager(st, testLogger())
	_, analysis, err := mgr.Analyze(ctx, branchPath)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	found := false
	for _, c := range analysis.Conflicts {
		if c.Type == merge.ConflictHierarchicalID && c.EntityID == fnID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected hierarchical_id conflict, got %v", analysis.Conflicts)
	}
}

func TestAnalyzeDetectsComponentDivergence(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	fnID := seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "recomponented")

	// Identity components change without touching the hierarchy string.
	execBranch(t, branchPath,
		"UPDATE functions SET level_identifier = 7, sequential_identifier = 4 WHERE id = ?", fnID)

	mgr := merge.NewManager(st, testLogger())
	canAuto, analysis, err := mgr.Analyze(ctx, branchPath)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if canAuto {
		t.Error("diverged identity components must block auto-merge")
	}
	if len(analysis.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(analysis.Conflicts))
	}
	c := analysis.Conflicts[0]
	if c.Type != merge.ConflictDuplicateEntity || c.EntityID != fnID {
		t.Errorf("unexpected conflict: %+v", c)
	}
}

func TestAnalyzeRejectsBrokenBranch(t *testing.T) {
	st, _ := setupTestStore(t)

	mgr := merge.NewManager(st, testLogger())
	_, _, err := mgr.Analyze(context.Background(), t.TempDir())
	if !errors.Is(err, merge.ErrBranchStructure) {
		t.Errorf("Analyze(empty dir) = %v, want ErrBranchStructure", err)
	}
}

func TestMergeAddsBranchRecords(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "additions")

	execBranch(t, branchPath,
		"INSERT INTO functions (system_hierarchy, system_id, function_name) VALUES (?, ?, ?)",
		"F-9", sysID, "Monitor")

	mgr := merge.NewManager(st, testLogger())
	msg, err := mgr.Merge(ctx, branchPath, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if msg == "" {
		t.Error("expected a success message")
	}

	count, err := store.CountWorkingRows(ctx, st.DB(), "functions")
	if err != nil {
		t.Fatalf("CountWorkingRows: %v", err)
	}
	if count != 2 {
		t.Errorf("main functions after merge = %d, want 2", count)
	}

	var name string
	if err := st.DB().QueryRow(
		"SELECT function_name FROM functions WHERE system_hierarchy = 'F-9'").Scan(&name); err != nil {
		t.Fatalf("merged row missing: %v", err)
	}
	if name != "Monitor" {
		t.Errorf("merged function_name = %q", name)
	}

	var logged int
	if err := st.DB().QueryRow("SELECT COUNT(*) FROM merge_log").Scan(&logged); err != nil {
		t.Fatalf("merge_log: %v", err)
	}
	if logged != 1 {
		t.Errorf("merge_log rows = %d, want 1", logged)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "repeat")

	execBranch(t, branchPath,
		"INSERT INTO functions (system_hierarchy, system_id, function_name) VALUES (?, ?, ?)",
		"F-9", sysID, "Monitor")

	mgr := merge.NewManager(st, testLogger())
	if _, err := mgr.Merge(ctx, branchPath, nil); err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	if _, err := mgr.Merge(ctx, branchPath, nil); err != nil {
		t.Fatalf("second Merge: %v", err)
	}

	count, err := store.CountWorkingRows(ctx, st.DB(), "functions")
	if err != nil {
		t.Fatalf("CountWorkingRows: %v", err)
	}
	if count != 2 {
		t.Errorf("main functions after re-merge = %d, want 2", count)
	}
}

func TestMergeRefusesUnresolvedConflicts(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	fnID := seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "conflicted")

	execBranch(t, branchPath,
		"UPDATE functions SET function_name = 'Navigate (branch)' WHERE id = ?", fnID)

	mgr := merge.NewManager(st, testLogger())
	_, err := mgr.Merge(ctx, branchPath, nil)
	if !errors.Is(err, merge.ErrConflicts) {
		t.Errorf("Merge with conflicts = %v, want ErrConflicts", err)
	}
}

func TestMergeRejectsUnknownResolutionTable(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "bad-resolution")

	mgr := merge.NewManager(st, testLogger())
	resolutions := map[string]merge.Resolution{
		"audit_log:1": {Action: merge.KeepMain, Table: "audit_log", EntityID: 1},
	}
	if _, err := mgr.Merge(ctx, branchPath, resolutions); err == nil {
		t.Fatal("resolution against a non-mergeable table must be rejected")
	}

	var logged int
	if err := st.DB().QueryRow("SELECT COUNT(*) FROM merge_log").Scan(&logged); err != nil {
		t.Fatalf("merge_log: %v", err)
	}
	if logged != 0 {
		t.Error("merge proceeded despite an invalid resolution")
	}
}

func TestMergeKeepMainResolution(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	fnID := seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "resolved")

	execBranch(t, branchPath,
		"UPDATE functions SET function_name = 'Navigate (branch)' WHERE id = ?", fnID)

	mgr := merge.NewManager(st, testLogger())
	resolutions := map[string]merge.Resolution{
		"functions:1": {Action: merge.KeepMain, Table: "functions", EntityID: fnID},
	}
	if _, err := mgr.Merge(ctx, branchPath, resolutions); err != nil {
		t.Fatalf("Merge with resolution: %v", err)
	}

	var name string
	if err := st.DB().QueryRow(
		"SELECT function_name FROM functions WHERE id = ?", fnID).Scan(&name); err != nil {
		t.Fatalf("main row: %v", err)
	}
	if name != "Navigate" {
		t.Errorf("main function_name after keep_main = %q, want Navigate", name)
	}
}

func TestMergeRollsBackOnFailure(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "doomed")

	// Two branch additions; the second collides with a main row added
	// after branching (same hierarchical identity, different surrogate
	// id), so its insert violates UNIQUE(system_hierarchy, baseline)
	// halfway through the merge transaction.
	execBranch(t, branchPath,
		"INSERT INTO functions (system_hierarchy, system_id, function_name) VALUES (?, ?, ?)",
		"F-9", sysID, "Monitor")
	execBranch(t, branchPath,
		"INSERT INTO functions (system_hierarchy, system_id, function_name) VALUES (?, ?, ?)",
		"F-10", sysID, "Track")
	if _, err := st.DB().Exec(
		"INSERT INTO functions (id, system_hierarchy, system_id, function_name) VALUES (50, 'F-10', ?, 'Track precisely')",
		sysID); err != nil {
		t.Fatalf("main insert: %v", err)
	}

	mgr := merge.NewManager(st, testLogger())
	if _, err := mgr.Merge(ctx, branchPath, nil); err == nil {
		t.Fatal("expected merge failure on unique collision")
	}

	// The whole transaction must roll back: not even the first, clean
	// addition may survive.
	var count int
	if err := st.DB().QueryRow(
		"SELECT COUNT(*) FROM functions WHERE system_hierarchy = 'F-9'").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Error("partial merge survived a failed transaction")
	}
	if err := st.DB().QueryRow("SELECT COUNT(*) FROM merge_log").Scan(&count); err != nil {
		t.Fatalf("merge_log: %v", err)
	}
	if count != 0 {
		t.Error("merge_log row survived a failed transaction")
	}
}

func TestMergeKeepsBranch(t *testing.T) {
	st, workingDir := setupTestStore(t)
	ctx := context.Background()

	sysID := seedSystem(t, st.DB(), "S-1", "Avionics")
	seedFunction(t, st.DB(), "F-1", sysID, "Navigate")
	branchPath := makeBranch(t, st, workingDir, sysID, "survivor")

	mgr := merge.NewManager(st, testLogger())
	if _, err := mgr.Merge(ctx, branchPath, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	// Merging must never delete the branch; re-analysis still works.
	if _, _, err := mgr.Analyze(ctx, branchPath); err != nil {
		t.Errorf("branch unusable after merge: %v", err)
	}
}
