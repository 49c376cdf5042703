package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// System is the minimal system view the versioning layer needs for
// descendant resolution.
type System struct {
	ID              int64
	ParentSystemID  sql.NullInt64
	SystemHierarchy string
	SystemName      string
}

// SystemByID returns the Working row for one system.
func SystemByID(ctx context.Context, q Queryer, id int64) (*System, error) {
	sys := &System{}
	err := q.QueryRowContext(ctx,
		"SELECT id, parent_system_id, system_hierarchy, system_name FROM systems WHERE id = ? AND baseline = ?",
		id, WorkingBaseline,
	).Scan(&sys.ID, &sys.ParentSystemID, &sys.SystemHierarchy, &sys.SystemName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("system %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get system %d: %w", id, err)
	}
	return sys, nil
}

// DescendantSystemIDs walks parent_system_id edges recursively and
// returns every Working descendant of root, at unbounded depth. The
// root itself is not included.
func DescendantSystemIDs(ctx context.Context, q Queryer, rootID int64) ([]int64, error) {
	var descendants []int64

	var walk func(parentID int64) error
	walk = func(parentID int64) error {
		rows, err := q.QueryContext(ctx,
			"SELECT id FROM systems WHERE parent_system_id = ? AND baseline = ?",
			parentID, WorkingBaseline)
		if err != nil {
			return fmt.Errorf("failed to list children of system %d: %w", parentID, err)
		}

		var children []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan child system: %w", err)
			}
			children = append(children, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, child := range children {
			descendants = append(descendants, child)
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(rootID); err != nil {
		return nil, err
	}
	return descendants, nil
}

// SubtreeHierarchies returns the hierarchy strings of the given Working
// systems, in the order the ids are passed.
func SubtreeHierarchies(ctx context.Context, q Queryer, ids []int64) ([]string, error) {
	var hierarchies []string
	for _, id := range ids {
		sys, err := SystemByID(ctx, q, id)
		if err != nil {
			return nil, err
		}
		hierarchies = append(hierarchies, sys.SystemHierarchy)
	}
	return hierarchies, nil
}

// Placeholders renders "?, ?, ?" for an IN clause of n values.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
