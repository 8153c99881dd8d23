// Package store persists video analyses in SQLite using an EAV layout:
// one video_analysis row per video and one video_features row per rubric item.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a video analysis.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusCompleted, StatusIncomplete, StatusFailed:
		return true
	}
	return false
}

// Queue states for analysis_queue.
const (
	queueWaiting    = "waiting"
	queueProcessing = "processing"
	queueCompleted  = "completed"
	queueFailed     = "failed"
)

// ErrNotFound is returned when a video id is unknown.
var ErrNotFound = errors.New("video not found")

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
			}
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	n, err := s.RequeueInterrupted(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	if n > 0 {
		slog.Info("store: requeued interrupted analyses", slog.Int64("count", n))
	}
	return s, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS video_analysis (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		url                TEXT UNIQUE NOT NULL,
		note               TEXT,
		status             TEXT NOT NULL DEFAULT 'pending',
		created_at         TEXT NOT NULL,
		analyzed_at        TEXT,
		script_language    TEXT,
		view_count         INTEGER NOT NULL DEFAULT 0,
		like_count         INTEGER NOT NULL DEFAULT 0,
		comment_count      INTEGER NOT NULL DEFAULT 0,
		duration           TEXT,
		channel_title      TEXT,
		published_at       TEXT,
		model              TEXT,
		completion         REAL NOT NULL DEFAULT 0,
		hybrid_score       REAL,
		quantitative_score REAL,
		qualitative_score  REAL,
		error_message      TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS video_features (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id         TEXT NOT NULL REFERENCES video_analysis(id) ON DELETE CASCADE,
		feature_no       INTEGER NOT NULL,
		feature_category TEXT NOT NULL,
		feature_item     TEXT NOT NULL,
		feature_value    TEXT NOT NULL,
		UNIQUE(video_id, feature_no)
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_queue (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id      TEXT NOT NULL REFERENCES video_analysis(id) ON DELETE CASCADE,
		priority      INTEGER NOT NULL DEFAULT 1,
		status        TEXT NOT NULL DEFAULT 'waiting',
		error_message TEXT,
		created_at    TEXT NOT NULL,
		processed_at  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_video_status ON video_analysis(status)`,
	`CREATE INDEX IF NOT EXISTS idx_video_created ON video_analysis(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_features_video ON video_features(video_id)`,
	`CREATE INDEX IF NOT EXISTS idx_features_no ON video_features(feature_no)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_status ON analysis_queue(status)`,
}

func initSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Healthy pings the database.
func (s *Store) Healthy(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("store: health: %w", err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
