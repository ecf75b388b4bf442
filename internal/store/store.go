// Package store is a key-path document store over SQLite. Values are stored
// as JSON under slash-separated paths such as "runs/<id>" or "stats/aggregate".
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrNotFound is returned when no document exists at a path.
var ErrNotFound = errors.New("document not found")

const timeFormat = "2006-01-02T15:04:05.000Z"

// Store reads and writes JSON documents.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a store on a migrated database.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With(slog.String("component", "store")),
	}
}

// Get decodes the document at path into dst.
func (s *Store) Get(ctx context.Context, path string, dst any) error {
	return get(ctx, s.db, path, dst)
}

// Set replaces the document at path with v.
func (s *Store) Set(ctx context.Context, path string, v any) error {
	return set(ctx, s.db, path, v)
}

// Update runs a read-modify-write of the document at path in one
// transaction. fn receives the raw current value, or nil when the document
// does not exist yet, and returns the new value to store.
func (s *Store) Update(ctx context.Context, path string, fn func(current json.RawMessage) (any, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM documents WHERE path = ?`, path).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	next, err := fn(json.RawMessage(current))
	if err != nil {
		return err
	}
	if err := set(ctx, tx, path, next); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", path, err)
	}
	s.logger.Debug("document updated", slog.String("path", path))
	return nil
}

// Entry is a stored document as returned by List.
type Entry struct {
	Path      string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// List returns every document whose path starts with prefix, most recently
// updated first.
func (s *Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, value, updated_at FROM documents
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, path
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			value   []byte
			updated string
		)
		if err := rows.Scan(&e.Path, &value, &updated); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		e.Value = json.RawMessage(value)
		e.UpdatedAt, _ = time.Parse(timeFormat, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the document at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deleting %s: %w", path, ErrNotFound)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func get(ctx context.Context, q queryer, path string, dst any) error {
	var raw []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM documents WHERE path = ?`, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func set(ctx context.Context, q queryer, path string, v any) error {
	if path == "" {
		return errors.New("writing document: empty path")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	now := time.Now().UTC().Format(timeFormat)
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (path, value, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, path, string(data), now, now)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
