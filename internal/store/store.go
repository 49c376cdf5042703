// Package store provides the entity-store contract the versioning
// managers are built on: a file-backed SQLite handle, transactional
// execution, generic working-row access, and the static table registry.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/example/stpactl/internal/db"
)

// WorkingBaseline is the reserved, permanently-mutable baseline label.
// All live edits target it; it can never be deleted.
const WorkingBaseline = "Working"

// Shared error taxonomy. Managers wrap these so callers can test with
// errors.Is without parsing messages.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidName     = errors.New("invalid name: use only letters, numbers, underscores, and hyphens (max 64)")
	ErrExists          = errors.New("already exists")
	ErrWorkingBaseline = errors.New("cannot modify the working baseline")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidName reports whether a baseline or branch name is acceptable.
// Checked before any I/O.
func ValidName(name string) bool {
	return len(name) > 0 && len(name) <= 64 && namePattern.MatchString(name)
}

// Store is a handle to one physical store file. Branch and merge
// operations hold two Stores at once (main and branch); atomicity
// within each file is delegated to SQLite's own journaling.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens the store file at path.
func Open(path string) (*Store, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn, path: path}, nil
}

// OpenReadOnly opens the store file at path without write access.
func OpenReadOnly(path string) (*Store, error) {
	conn, err := db.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn, path: path}, nil
}

// OpenRelaxed opens the store file at path without foreign key
// enforcement. Reserved for writes to branch copies that deliberately
// sever references.
func OpenRelaxed(path string) (*Store, error) {
	conn, err := db.OpenRelaxed(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn, path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying connection for read queries.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// Close closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Reconnect reopens the connection after the backing file was swapped
// (baseline load replaces the live file in place).
func (s *Store) Reconnect() error {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}
	conn, err := db.Open(s.path)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// WithTx runs fn inside one transaction. Any error (or panic) rolls the
// whole transaction back; errors surface once, from here.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
