// ABOUTME: SQLite-backed session persistence implementing adapters.Persistence
// ABOUTME: Schema mirrors spec §6's relational layout; all mutations are transactional
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo

	"github.com/resonatefm/sessioncore/internal/model"
)

// Config mirrors the teacher pack's sqlite-open conventions: WAL mode,
// a busy timeout, and foreign keys enforced on every connection.
type Config struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

func DefaultConfig(path string) Config {
	return Config{Path: path, BusyTimeout: 5 * time.Second, MaxOpenConns: 25}
}

// Store implements adapters.Persistence against a sqlite database.
type Store struct {
	db *sql.DB
}

// Open creates the connection pool and applies the schema (idempotently).
func Open(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		cfg.Path, cfg.BusyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open failed: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS session_playlists (
	id INTEGER PRIMARY KEY AUTOINCREMENT
);

CREATE TABLE IF NOT EXISTS session_playlist_tracks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_playlist_id INTEGER NOT NULL REFERENCES session_playlists(id) ON DELETE CASCADE,
	track_id TEXT NOT NULL,
	type TEXT NOT NULL,
	data TEXT,
	order_index INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 0,
	playing INTEGER NOT NULL DEFAULT 0,
	position INTEGER,
	seek REAL,
	volume REAL,
	playback_target TEXT,
	audio_zone_id INTEGER,
	connection_id TEXT,
	output_id TEXT,
	session_playlist_id INTEGER NOT NULL REFERENCES session_playlists(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS connections (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created INTEGER NOT NULL,
	updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS players (
	id TEXT PRIMARY KEY,
	connection_id TEXT NOT NULL REFERENCES connections(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	type TEXT,
	audio_output_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_players (
	session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	PRIMARY KEY (session_id, player_id)
);

CREATE TABLE IF NOT EXISTS audio_zones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audio_zone_players (
	audio_zone_id INTEGER NOT NULL REFERENCES audio_zones(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	PRIMARY KEY (audio_zone_id, player_id)
);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("store: migrate failed: %w", err)
	}
	return nil
}

// ErrInvalidRequest is returned for requests that violate session invariants
// (spec §4.2, §7's "Session consistency" error kind).
type ErrInvalidRequest struct{ Reason string }

func (e *ErrInvalidRequest) Error() string { return "store: invalid request: " + e.Reason }

// ErrNotFound is returned when a row addressed by id does not exist.
type ErrNotFound struct{ What string }

func (e *ErrNotFound) Error() string { return "store: not found: " + e.What }
