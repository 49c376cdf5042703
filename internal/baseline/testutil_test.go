package baseline_test

import (
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/stpactl/internal/db"
	"github.com/example/stpactl/internal/logging"
	"github.com/example/stpactl/internal/store"
)

// setupTestStore initializes a file-backed store in a fresh temp
// working directory. Baseline operations copy the store file around,
// so these tests cannot run on :memory: databases.
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

func seedLoss(t *testing.T, conn *sql.DB, hierarchy, name string) {
	t.Helper()

	_, err := conn.Exec(
		"INSERT INTO losses (system_hierarchy, loss_name) VALUES (?, ?)",
		hierarchy, name)
	if err != nil {
		t.Fatalf("failed to seed loss %s: %v", hierarchy, err)
	}
}
