// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store caches collected market data in SQLite so generation can
// be rerun without repeating the research requests. Generated content is
// never stored.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/listing-engine/pkg/types"
)

const dbFile = "market.db"

// ErrNotFound is returned when no snapshot matches the lookup.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotInfo summarizes one stored snapshot.
type SnapshotInfo struct {
	ID          string
	CategoryID  string
	CreatedAt   time.Time
	Trends      int
	Attributes  int
	Competitors int
}

// Store manages the snapshot database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates {cfg.Dir}/market.db and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			trends INTEGER NOT NULL,
			attributes INTEGER NOT NULL,
			competitors INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_category ON snapshots(category_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores market under categoryID and returns the new snapshot id.
func (s *Store) Save(ctx context.Context, categoryID string, market types.MarketContext) (string, error) {
	payload, err := json.Marshal(market)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, category_id, created_at, trends, attributes, competitors, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, categoryID, s.now().UTC().Format(time.RFC3339Nano),
		len(market.Trends), len(market.Attributes), len(market.Competitors), string(payload))
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}
	return id, nil
}

// Get returns the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id string) (types.MarketContext, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id)
	return scanPayload(row)
}

// Latest returns the most recent snapshot for categoryID.
func (s *Store) Latest(ctx context.Context, categoryID string) (types.MarketContext, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE category_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, categoryID)
	return scanPayload(row)
}

func scanPayload(row *sql.Row) (types.MarketContext, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MarketContext{}, ErrNotFound
		}
		return types.MarketContext{}, fmt.Errorf("reading snapshot: %w", err)
	}
	var m types.MarketContext
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return types.MarketContext{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return m, nil
}

// List returns every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, created_at, trends, attributes, competitors
		 FROM snapshots ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info    SnapshotInfo
			created string
		)
		if err := rows.Scan(&info.ID, &info.CategoryID, &created, &info.Trends, &info.Attributes, &info.Competitors); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
