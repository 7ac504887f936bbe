package scrobbler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal keeps finished playback sessions in SQLite so the history
// command and the TUI can show what was (or was not) scrobbled.
type Journal struct {
	db *sql.DB
}

// NewJournal opens or creates the journal at dbPath. Use ":memory:" in tests.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			title TEXT,
			artist TEXT,
			state TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			elapsed INTEGER NOT NULL,
			duration INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_finished ON sessions(finished_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record stores a finished session. Recording the same session twice
// keeps the latest state.
func (j *Journal) Record(ctx context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session has no id")
	}

	finished := s.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := `
		INSERT INTO sessions (id, item_id, title, artist, state, attempts, elapsed, duration, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			attempts = excluded.attempts,
			elapsed = excluded.elapsed,
			finished_at = excluded.finished_at,
			error = excluded.error
	`
	_, err := j.db.ExecContext(ctx, query,
		s.ID,
		s.ItemID,
		s.Title,
		s.Artist,
		s.State.String(),
		s.Attempts,
		int64(s.Elapsed.Seconds()),
		int64(s.Duration.Seconds()),
		s.StartedAt.Unix(),
		finished.Unix(),
		s.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// Recent returns up to limit sessions, newest first. A limit of zero
// returns everything.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT id, item_id, COALESCE(title, ''), COALESCE(artist, ''), state, attempts,
			elapsed, duration, started_at, finished_at, COALESCE(error, '')
		FROM sessions
		ORDER BY finished_at DESC, started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var state string
		var elapsed, duration, started, finished int64

		err := rows.Scan(
			&s.ID,
			&s.ItemID,
			&s.Title,
			&s.Artist,
			&state,
			&s.Attempts,
			&elapsed,
			&duration,
			&started,
			&finished,
			&s.LastError,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		if s.State, err = ParseState(state); err != nil {
			return nil, err
		}
		s.Elapsed = time.Duration(elapsed) * time.Second
		s.Duration = time.Duration(duration) * time.Second
		s.StartedAt = time.Unix(started, 0)
		s.FinishedAt = time.Unix(finished, 0)

		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Count returns the number of recorded sessions in state, or of all
// sessions when state is StateIdle.
func (j *Journal) Count(ctx context.Context, state State) (int, error) {
	query := "SELECT COUNT(*) FROM sessions"
	args := []any{}
	if state != StateIdle {
		query += " WHERE state = ?"
		args = append(args, state.String())
	}

	var count int
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Cleanup removes sessions that finished more than maxAge ago.
func (j *Journal) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	result, err := j.db.ExecContext(ctx, "DELETE FROM sessions WHERE finished_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
