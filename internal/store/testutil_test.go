// Package store_test exercises the row helpers against real SQLite
// stores built from the authoritative schema.
//
// All test setup goes through db.GetSchemaSQL() so a column referenced
// here but missing from the schema fails immediately instead of
// drifting. Do not hardcode CREATE TABLE statements in test files.
package store_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/stpactl/internal/db"
)

// setupTestDB creates an in-memory store with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedSystem inserts a Working system and returns its id. parentID 0
// means a root system.
func seedSystem(t *testing.T, conn *sql.DB, hierarchy, name string, parentID int64) int64 {
	t.Helper()

	var parent any
	if parentID != 0 {
		parent = parentID
	}
	res, err := conn.Exec(
		"INSERT INTO systems (system_hierarchy, system_name, parent_system_id) VALUES (?, ?, ?)",
		hierarchy, name, parent)
	if err != nil {
		t.Fatalf("failed to seed system %s: %v", hierarchy, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get system id: %v", err)
	}
	return id
}

// seedFunction inserts a Working function owned by a system.
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

// seedLoss inserts a Working project-global loss.
func seedLoss(t *testing.T, conn *sql.DB, hierarchy, name string) int64 {
	t.Helper()

	res, err := conn.Exec(
		"INSERT INTO losses (system_hierarchy, loss_name) VALUES (?, ?)",
		hierarchy, name)
	if err != nil {
		t.Fatalf("failed to seed loss %s: %v", hierarchy, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get loss id: %v", err)
	}
	return id
}
