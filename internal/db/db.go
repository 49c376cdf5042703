// Package db owns SQLite connections and the authoritative schema.
//
// Unlike a service with one global handle, stpactl routinely holds two
// stores at once (main plus a branch copy), so connections are opened
// per path instead of through a package singleton.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the SQLite store at path with foreign keys enforced.
// Enforcement rides on the DSN rather than a PRAGMA statement: a
// PRAGMA only configures the one pooled connection that executes it,
// while the DSN applies to every connection the pool opens.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

// OpenRelaxed opens the store at path without foreign key enforcement.
// Branch filtering and conflict resolution intentionally sever
// references on branch copies; everything else goes through Open.
func OpenRelaxed(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=off", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

// OpenReadOnly opens the store at path without write access.
// Used for branch statistics so inspection can never mutate a branch.
func OpenReadOnly(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database read-only: %w", err)
	}
	return conn, nil
}

// Init creates a fresh store at path from the authoritative schema and
// records the schema version.
func Init(path string) (*sql.DB, error) {
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(GetSchemaSQL()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	_, err = conn.Exec(
		"INSERT INTO db_version (version, description) VALUES (?, ?)",
		SchemaVersion, "initial schema",
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}

	return conn, nil
}
