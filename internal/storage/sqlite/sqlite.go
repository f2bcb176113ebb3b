// Package sqlite provides the audit journal: a SQLite-backed implementation
// of storage.AuditLog using Go's standard database/sql package.
//
// The spreadsheet stays the source of truth for student data. The journal
// only answers "who changed which row, when, and which fields", which the
// spreadsheet itself cannot tell once it has been overwritten.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aanand-mishra/students-form/internal/config"
	"github.com/aanand-mishra/students-form/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.AuditLog.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at cfg.AuditPath and creates the updates
// table if it does not exist yet.
func New(cfg *config.Config) (*SQLite, error) {
	return Open(cfg.AuditPath)
}

// Open is New for callers that only have a path (tests, tools).
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	// Schema:
	//   uid          the uid of the row as it was matched at login
	//   row_index    position of the row in the dataset at save time
	//   fields       JSON array of the columns whose value changed
	//   request_id   correlates with the access log
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS updates (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			uid        TEXT    NOT NULL,
			row_index  INTEGER NOT NULL,
			fields     TEXT    NOT NULL,
			request_id TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// Append records one persisted update and returns its journal id.
// A zero CreatedAt is replaced by the current time.
func (s *SQLite) Append(ctx context.Context, entry types.AuditEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	fields, err := json.Marshal(nonNil(entry.Fields))
	if err != nil {
		return 0, fmt.Errorf("Append: encode fields: %w", err)
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO updates (uid, row_index, fields, request_id, created_at) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, fmt.Errorf("Append: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		entry.UID, entry.RowIndex, string(fields), entry.RequestID, entry.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("Append: exec: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("Append: last insert id: %w", err)
	}
	return id, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *SQLite) List(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 means no limit
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, uid, row_index, fields, request_id, created_at FROM updates ORDER BY id DESC LIMIT ?",
	)
	if err != nil {
		return nil, fmt.Errorf("List: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("List: query: %w", err)
	}
	defer rows.Close()

	entries := make([]types.AuditEntry, 0)
	for rows.Next() {
		var (
			e       types.AuditEntry
			fields  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.UID, &e.RowIndex, &fields, &e.RequestID, &created); err != nil {
			return nil, fmt.Errorf("List: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
			return nil, fmt.Errorf("List: decode fields of entry %d: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows iteration: %w", err)
	}

	return entries, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
