// Package sqlite implements ports.CheckpointStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/tessera/pkg/domain"
)

// Store keeps checkpoints in two tables: one row per run and one row per processed chunk.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save upserts the checkpoint row and replaces its chunk rows in one transaction.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if cp.RunKey == "" {
		return fmt.Errorf("run key cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	updated := cp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoints (run_key, item, pipe, state, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(run_key) DO UPDATE SET
            item = excluded.item,
            pipe = excluded.pipe,
            state = excluded.state,
            updated_at = excluded.updated_at`,
		cp.RunKey, cp.Item, cp.Pipe, string(cp.State), updated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM processed_chunks WHERE run_key = ?", cp.RunKey); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for i, hash := range cp.Chunks {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO processed_chunks (run_key, hash, position) VALUES (?, ?, ?)",
			cp.RunKey, hash, i,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint and its processed chunks.
func (s *Store) Load(ctx context.Context, runKey string) (*domain.Checkpoint, error) {
	var (
		cp      domain.Checkpoint
		state   string
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT run_key, item, pipe, state, updated_at FROM checkpoints WHERE run_key = ?", runKey,
	).Scan(&cp.RunKey, &cp.Item, &cp.Pipe, &state, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	cp.State = domain.State(state)
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		cp.UpdatedAt = ts
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT hash FROM processed_chunks WHERE run_key = ? ORDER BY position", runKey)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		cp.Chunks = append(cp.Chunks, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint; chunk rows cascade.
func (s *Store) Delete(ctx context.Context, runKey string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE run_key = ?", runKey); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// List returns the stored run keys, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_key FROM checkpoints ORDER BY run_key")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan run key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
