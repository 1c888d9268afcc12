// Package sqlite provides SQLite-based persistent storage for CoverQuest.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/engine.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "engine.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Engine-owned user state. The version column backs the optimistic
		// concurrency check on the contended streak/daily-cap fields.
		`CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			overall_score       REAL NOT NULL DEFAULT 0,
			category_scores     TEXT NOT NULL DEFAULT '{}',
			current_streak      INTEGER NOT NULL DEFAULT 0,
			longest_streak      INTEGER NOT NULL DEFAULT 0,
			last_active_date    INTEGER,
			has_streak_freeze   BOOLEAN NOT NULL DEFAULT 0,
			daily_challenges    INTEGER NOT NULL DEFAULT 0,
			daily_points        INTEGER NOT NULL DEFAULT 0,
			last_challenge_date INTEGER,
			focus_areas         TEXT NOT NULL DEFAULT '[]',
			active_policies     TEXT NOT NULL DEFAULT '[]',
			level               INTEGER NOT NULL DEFAULT 1,
			version             INTEGER NOT NULL DEFAULT 0,
			created_at          INTEGER NOT NULL,
			updated_at          INTEGER NOT NULL
		)`,

		// Challenge templates — immutable once created.
		`CREATE TABLE IF NOT EXISTS templates (
			id          TEXT PRIMARY KEY,
			category    TEXT NOT NULL,
			type        TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			steps       TEXT NOT NULL DEFAULT '[]',
			points      INTEGER NOT NULL,
			difficulty  TEXT NOT NULL,
			est_minutes INTEGER NOT NULL DEFAULT 0,
			trigger     TEXT,
			source      TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_category ON templates(category)`,

		// Per-user challenge assignments with lifecycle status.
		`CREATE TABLE IF NOT EXISTS user_challenges (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			template_id  TEXT NOT NULL,
			title        TEXT NOT NULL,
			category     TEXT NOT NULL,
			points       INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL,
			progress     INTEGER NOT NULL DEFAULT 0,
			started_at   INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uc_user ON user_challenges(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_uc_user_status ON user_challenges(user_id, status)`,

		// Protection Points ledger (double-entry bookkeeping).
		`CREATE TABLE IF NOT EXISTS points_ledger (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			type         TEXT NOT NULL,
			entry_type   TEXT NOT NULL,
			account      TEXT NOT NULL,
			amount       INTEGER NOT NULL,
			challenge_id TEXT,
			description  TEXT,
			balance      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON points_ledger(account)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_ts ON points_ledger(timestamp)`,

		// Behavior analytics — one JSON record per user, with the analysis
		// gate column kept relational for batch queries.
		`CREATE TABLE IF NOT EXISTS analytics (
			user_id          TEXT PRIMARY KEY,
			record           TEXT NOT NULL,
			last_analyzed_at INTEGER,
			updated_at       INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromUnix(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(n.Int64, 0).UTC()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
