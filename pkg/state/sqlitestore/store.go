// Package sqlitestore persists per-group inventory snapshots in SQLite
// using the cgo-free modernc.org/sqlite driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-invgroups/pkg/state"
)

// Store is a state.Store that encodes snapshots as JSON.
type Store[T any] struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" keeps everything
// in process.
func Open[T any](path string) (*Store[T], error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitestore: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store[T]{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			player TEXT NOT NULL,
			grp TEXT NOT NULL,
			data TEXT NOT NULL,
			snapshot_id TEXT NOT NULL,
			etag TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			extra TEXT,
			PRIMARY KEY (player, grp)
		);`,
		`CREATE INDEX IF NOT EXISTS snapshots_player ON snapshots(player);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store[T]) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load implements state.Store.
func (s *Store[T]) Load(ctx context.Context, ref state.Ref) (T, state.Meta, bool, error) {
	var zero T
	if _, err := ref.Identifier(); err != nil {
		return zero, state.Meta{}, false, err
	}
	var (
		data, snapshotID, etag, updatedAt string
		extra                             sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, snapshot_id, etag, updated_at, extra FROM snapshots WHERE player = ? AND grp = ?`,
		ref.Player.String(), ref.Group,
	).Scan(&data, &snapshotID, &etag, &updatedAt, &extra)
	if err == sql.ErrNoRows {
		return zero, state.Meta{}, false, nil
	}
	if err != nil {
		return zero, state.Meta{}, false, err
	}

	var snapshot T
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: decode %s/%s: %w", ref.Player, ref.Group, err)
	}
	meta := state.Meta{SnapshotID: snapshotID, ETag: etag}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		meta.UpdatedAt = ts
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: decode meta %s/%s: %w", ref.Player, ref.Group, err)
		}
	}
	return snapshot, meta, true, nil
}

// Save implements state.Store. Every save stamps a new ETag; a missing
// SnapshotID defaults to it.
func (s *Store[T]) Save(ctx context.Context, ref state.Ref, snapshot T, meta state.Meta) (state.Meta, error) {
	if _, err := ref.Identifier(); err != nil {
		return state.Meta{}, err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: encode %s/%s: %w", ref.Player, ref.Group, err)
	}
	out := meta
	out.ETag = uuid.NewString()
	if out.SnapshotID == "" {
		out.SnapshotID = out.ETag
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now().UTC()
	}
	var extra sql.NullString
	if len(out.Extra) > 0 {
		raw, err := json.Marshal(out.Extra)
		if err != nil {
			return state.Meta{}, err
		}
		extra = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO snapshots (player, grp, data, snapshot_id, etag, updated_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player, grp) DO UPDATE SET
			data = excluded.data,
			snapshot_id = excluded.snapshot_id,
			etag = excluded.etag,
			updated_at = excluded.updated_at,
			extra = excluded.extra`,
		ref.Player.String(), ref.Group, string(data), out.SnapshotID, out.ETag,
		out.UpdatedAt.UTC().Format(time.RFC3339Nano), extra,
	)
	if err != nil {
		return state.Meta{}, err
	}
	return out, nil
}

// Groups lists the groups holding a snapshot for player.
func (s *Store[T]) Groups(ctx context.Context, player uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grp FROM snapshots WHERE player = ? ORDER BY grp`, player.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, err
		}
		out = append(out, group)
	}
	return out, rows.Err()
}
