package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session records one import run.
type Session struct {
	ID           string
	Corpus       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Dispatched   int
	Filtered     int
	SkippedTeams int
	BadNames     int
	Duplicates   int
	// Error is set when the import aborted.
	Error string
}

// Failed reports whether the import aborted.
func (s *Session) Failed() bool { return s.Error != "" }

// BeginSession stores a new, unfinished import session.
func (db *DB) BeginSession(corpus string, now time.Time) (*Session, error) {
	s := &Session{ID: uuid.NewString(), Corpus: corpus, StartedAt: now.UTC()}
	_, err := db.conn.Exec(`INSERT INTO import_sessions(id, corpus, started_at) VALUES (?, ?, ?)`,
		s.ID, s.Corpus, s.StartedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert import session: %w", err)
	}
	return s, nil
}

// FinishSession stores the session's counters and finish time.
func (db *DB) FinishSession(s *Session, now time.Time) error {
	s.FinishedAt = now.UTC()
	_, err := db.conn.Exec(`
		UPDATE import_sessions
		SET finished_at = ?, dispatched = ?, filtered = ?, skipped_teams = ?, bad_names = ?, duplicates = ?
		WHERE id = ?`,
		s.FinishedAt.Format(time.RFC3339), s.Dispatched, s.Filtered, s.SkippedTeams, s.BadNames, s.Duplicates, s.ID)
	if err != nil {
		return fmt.Errorf("update import session: %w", err)
	}
	return nil
}

// FailSession marks the session finished with the error that aborted it.
func (db *DB) FailSession(s *Session, now time.Time, cause error) error {
	s.FinishedAt = now.UTC()
	s.Error = cause.Error()
	_, err := db.conn.Exec(`UPDATE import_sessions SET finished_at = ?, error = ? WHERE id = ?`,
		s.FinishedAt.Format(time.RFC3339), s.Error, s.ID)
	if err != nil {
		return fmt.Errorf("update import session: %w", err)
	}
	return nil
}

// ListSessions returns import sessions, newest first.
func (db *DB) ListSessions() ([]Session, error) {
	rows, err := db.conn.Query(`
		SELECT id, corpus, started_at, finished_at, dispatched, filtered, skipped_teams, bad_names, duplicates, error
		FROM import_sessions ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var started, finished string
		if err := rows.Scan(&s.ID, &s.Corpus, &started, &finished,
			&s.Dispatched, &s.Filtered, &s.SkippedTeams, &s.BadNames, &s.Duplicates, &s.Error); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			s.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
