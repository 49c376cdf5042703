package merge_test

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/stpactl/internal/branch"
	"github.com/example/stpactl/internal/db"
	"github.com/example/stpactl/internal/logging"
	"github.com/example/stpactl/internal/store"
)

// setupTestStore initializes a file-backed store in a fresh temp
// working directory.
func setupTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()

	workingDir := t.TempDir()
	storePath := filepath.Join(workingDir, "project.db")

	conn, err := db.Init(storePath)
	if err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	conn.Close()

	st, err := store.Open(storePath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	return st, workingDir
}

func testLogger() *slog.Logger {
	return logging.New(slog.LevelError)
}

func seedSystem(t *testing.T, conn *sql.DB, hierarchy, name string) int64 {
	t.Helper()

	res, err := conn.Exec(
		"INSERT INTO systems (system_hierarchy, system_name) VALUES (?, ?)",
		hierarchy, name)
	if err != nil {
		t.Fatalf("failed to seed system %s: %v", hierarchy, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get system id: %v", err)
	}
	return id
}

func seedFunction(t *testing.T, conn *sql.DB, hierarchy string, systemID int64, name string) int64 {
	t.Helper()

	res, err := conn.Exec(
		"INSERT INTO functions (system_hierarchy, system_id, function_name) VALUES (?, ?, ?)",
		hierarchy, systemID, name)
	if err != nil {
		t.Fatalf("failed to seed function %s: %v", hierarchy, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get function id: %v", err)
	}
	return id
}

// makeBranch extracts a branch rooted at systemID and returns its path.
func makeBranch(t *testing.T, st *store.Store, workingDir string, systemID int64, name string) string {
	t.Helper()

	mgr, err := branch.NewManager(st, workingDir, testLogger())
	if err != nil {
		t.Fatalf("branch.NewManager: %v", err)
	}
	branchPath, err := mgr.Create(context.Background(), systemID, name, "test branch")
	if err != nil {
		t.Fatalf("branch Create: %v", err)
	}
	return branchPath
}

// execBranch runs one statement against a branch's store file.
func execBranch(t *testing.T, branchPath, query string, args ...any) {
	t.Helper()

	branchStore, err := store.Open(filepath.Join(branchPath, branch.StoreFileName))
	if err != nil {
		t.Fatalf("failed to open branch store: %v", err)
	}
	defer branchStore.Close()

	if _, err := branchStore.DB().Exec(query, args...); err != nil {
		t.Fatalf("branch exec failed: %v", err)
	}
}
