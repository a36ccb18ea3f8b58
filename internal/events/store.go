// Package events persists status transition history in SQLite, giving the
// dashboard a queryable record of when each agent started working, asked
// for approval, or went idle.
package events

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/paneboard/paneboard/internal/detect"
	"github.com/paneboard/paneboard/internal/logging"
	"github.com/paneboard/paneboard/internal/monitor"
)

var eventsLog = logging.ForComponent(logging.CompEvents)

// Store wraps a SQLite database of status transitions. Thread-safe for
// concurrent use from multiple goroutines within one process; WAL mode and
// a busy timeout make cross-process access safe too.
type Store struct {
	db *sql.DB
}

// Row is one persisted transition.
type Row struct {
	ID        int64
	UniqueID  string
	Target    string
	ProfileID string
	PID       int
	From      detect.Kind
	To        detect.Kind
	At        time.Time
}

// Open creates or opens the transition database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("events: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("events: open: %w", err)
	}

	// WAL allows concurrent readers while writing; busy timeout waits out
	// another process holding the lock.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("events: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			unique_id   TEXT NOT NULL,
			target      TEXT NOT NULL,
			profile_id  TEXT NOT NULL DEFAULT '',
			pid         INTEGER NOT NULL,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			at          INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
		CREATE INDEX IF NOT EXISTS idx_transitions_target ON transitions(target, at);
	`)
	if err != nil {
		return fmt.Errorf("events: migrate: %w", err)
	}
	return nil
}

// RecordTransition implements monitor.TransitionRecorder.
func (s *Store) RecordTransition(tr monitor.Transition) error {
	_, err := s.db.Exec(`
		INSERT INTO transitions (unique_id, target, profile_id, pid, from_status, to_status, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.UniqueID, tr.Target, tr.ProfileID, tr.PID,
		tr.From.String(), tr.To.String(), tr.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("events: insert: %w", err)
	}
	return nil
}

// Recent returns the latest transitions, newest first.
func (s *Store) Recent(limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, unique_id, target, profile_id, pid, from_status, to_status, at
		FROM transitions ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("events: query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ForTarget returns transitions for one pane target, newest first.
func (s *Store) ForTarget(target string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, unique_id, target, profile_id, pid, from_status, to_status, at
		FROM transitions WHERE target = ? ORDER BY at DESC, id DESC LIMIT ?`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("events: query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// PruneBefore deletes transitions older than cutoff and returns the count.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM transitions WHERE at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("events: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		eventsLog.Debug("pruned_transitions", slog.Int64("count", n))
	}
	return n, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var from, to string
		var at int64
		if err := rows.Scan(&r.ID, &r.UniqueID, &r.Target, &r.ProfileID, &r.PID, &from, &to, &at); err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}
		r.From, _ = detect.ParseKind(from)
		r.To, _ = detect.ParseKind(to)
		r.At = time.UnixMilli(at)
		out = append(out, r)
	}
	return out, rows.Err()
}
