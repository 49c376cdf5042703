// Package audit maintains an append-only, hash-chained trail of
// versioning operations. Each entry's hash covers the previous entry's
// hash, so edits or deletions anywhere in the chain are detectable.
// Appends are serialized through one mutex: the chain only makes sense
// with strictly sequential, single-writer appends.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/stpactl/internal/store"
)

// genesisHash seeds the chain before any entry exists.
const genesisHash = "genesis"

// ErrChainBroken reports a verification failure.
var ErrChainBroken = errors.New("audit chain broken")

// Entry is one audit record.
type Entry struct {
	Seq       int64
	EntryID   string
	LoggedAt  string
	Action    string
	Details   string
	PrevHash  string
	EntryHash string
}

// Log appends to and verifies the audit_log table of one store.
type Log struct {
	mu sync.Mutex
}

// NewLog returns an audit log appender.
func NewLog() *Log {
	return &Log{}
}

// Append writes one entry chained to the current tail. The queryer may
// be a transaction so the entry commits or rolls back with the
// operation it records.
func (l *Log) Append(ctx context.Context, q store.Queryer, action, details string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash, err := tailHash(ctx, q)
	if err != nil {
		return "", err
	}

	entry := Entry{
		EntryID:  uuid.NewString(),
		LoggedAt: time.Now().UTC().Format(time.RFC3339),
		Action:   action,
		Details:  details,
		PrevHash: prevHash,
	}
	entry.EntryHash = hashEntry(entry)

	_, err = q.ExecContext(ctx,
		"INSERT INTO audit_log (entry_id, logged_at, action, details, prev_hash, entry_hash) VALUES (?, ?, ?, ?, ?, ?)",
		entry.EntryID, entry.LoggedAt, entry.Action, entry.Details, entry.PrevHash, entry.EntryHash,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry.EntryID, nil
}

// Verify re-walks the whole chain and checks every link and hash.
func (l *Log) Verify(ctx context.Context, q store.Queryer) error {
	entries, err := Entries(ctx, q)
	if err != nil {
		return err
	}

	prev := genesisHash
	for _, entry := range entries {
		if entry.PrevHash != prev {
			return fmt.Errorf("%w: entry %d does not chain to its predecessor", ErrChainBroken, entry.Seq)
		}
		if hashEntry(entry) != entry.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, entry.Seq)
		}
		prev = entry.EntryHash
	}
	return nil
}

// Entries returns the full chain in append order.
func Entries(ctx context.Context, q store.Queryer) ([]Entry, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT seq, entry_id, logged_at, action, details, prev_hash, entry_hash FROM audit_log ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details sql.NullString
		if err := rows.Scan(&e.Seq, &e.EntryID, &e.LoggedAt, &e.Action, &details, &e.PrevHash, &e.EntryHash); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Details = details.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func tailHash(ctx context.Context, q store.Queryer) (string, error) {
	var hash string
	err := q.QueryRowContext(ctx,
		"SELECT entry_hash FROM audit_log ORDER BY seq DESC LIMIT 1").Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return genesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read audit tail: %w", err)
	}
	return hash, nil
}

func hashEntry(e Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", e.PrevHash, e.EntryID, e.LoggedAt, e.Action, e.Details)
	return hex.EncodeToString(h.Sum(nil))
}
