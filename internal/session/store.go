// Package session provides SQLite-backed storage for command history.
//
// The validation engine itself is stateless: every call receives the full
// command history as an argument. Something outside the engine has to
// carry that history between command submissions - this package is that
// collaborator. It records commands and their captured output per
// session, append-only, ordered by a per-session sequence number.
//
// Validation results are never stored here; only the learner's inputs.
package session

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is an append-only command log keyed by session.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Entry is one recorded command submission.
type Entry struct {
	Seq     int64
	Command string
	Output  string
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// multiple times. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin registers a new session for the given scenario and returns its
// ID. When id is empty a fresh UUID is minted.
func (s *Store) Begin(ctx context.Context, id, scenario string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, scenario) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, scenario)
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return id, nil
}

// Append records one command submission at the end of the session log.
func (s *Store) Append(ctx context.Context, sessionID, command, output string) error {
	if sessionID == "" {
		return fmt.Errorf("append: session id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (session_id, seq, command, output)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM commands WHERE session_id = ?), ?, ?)
	`, sessionID, sessionID, command, output)
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

// Entries returns the session's recorded submissions in order.
func (s *Store) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, command, output FROM commands
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.Command, &e.Output); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return entries, nil
}

// Commands returns just the command lines of the session, in order.
func (s *Store) Commands(ctx context.Context, sessionID string) ([]string, error) {
	entries, err := s.Entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cmds := make([]string, len(entries))
	for i, e := range entries {
		cmds[i] = e.Command
	}
	return cmds, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
