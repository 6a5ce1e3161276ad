package store

import (
	"fmt"
	"time"
)

// SavedSession is a condensed record of one Claude Code session: what
// happened, which files moved, which project it belonged to.
type SavedSession struct {
	ID           int64    `json:"id"`
	SessionID    string   `json:"session_id"`
	Project      string   `json:"project,omitempty"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed,omitempty"`
	CreatedAt    int64    `json:"created_at"`
}

// SaveSession inserts a session summary, or refreshes it when the same
// session_id is saved again (a resumed session ends twice).
func (db *DB) SaveSession(s *SavedSession) error {
	now := time.Now().UnixMilli()
	if s.CreatedAt == 0 {
		s.CreatedAt = now
	}

	result, err := db.Exec(`
		INSERT INTO saved_sessions (session_id, project, summary, files_changed, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			summary = excluded.summary,
			files_changed = excluded.files_changed,
			created_at = excluded.created_at
	`, s.SessionID, s.Project, s.Summary, marshalStrings(s.FilesChanged), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		s.ID = id
	}
	return nil
}

// RecentSessions returns the most recent saved sessions, newest first.
func (db *DB) RecentSessions(limit int) ([]SavedSession, error) {
	rows, err := db.Query(`
		SELECT id, session_id, project, summary, files_changed, created_at
		FROM saved_sessions ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SavedSession
	for rows.Next() {
		var s SavedSession
		var files string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Project, &s.Summary, &files, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.FilesChanged = unmarshalStrings(files)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AllSessions returns every saved session, oldest first. Used by export
// and migration, where a stable full ordering matters more than recency.
func (db *DB) AllSessions() ([]SavedSession, error) {
	rows, err := db.Query(`
		SELECT id, session_id, project, summary, files_changed, created_at
		FROM saved_sessions ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("all sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SavedSession
	for rows.Next() {
		var s SavedSession
		var files string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Project, &s.Summary, &files, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.FilesChanged = unmarshalStrings(files)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CountSessions returns the number of saved sessions.
func (db *DB) CountSessions() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM saved_sessions").Scan(&count)
	return count, err
}

// SessionBytes returns the total stored size of session text.
func (db *DB) SessionBytes() (int64, error) {
	var n int64
	err := db.QueryRow(`
		SELECT COALESCE(SUM(LENGTH(summary) + LENGTH(files_changed)), 0) FROM saved_sessions
	`).Scan(&n)
	return n, err
}

// TrimSessions deletes oldest sessions until total stored text fits the
// byte budget. Deletes one row at a time so an interrupted trim leaves a
// consistent store. Returns the number of sessions removed.
func (db *DB) TrimSessions(maxBytes int64) (int, error) {
	removed := 0
	for {
		size, err := db.SessionBytes()
		if err != nil {
			return removed, fmt.Errorf("session bytes: %w", err)
		}
		if size <= maxBytes {
			return removed, nil
		}

		count, err := db.CountSessions()
		if err != nil {
			return removed, err
		}
		if count <= 1 {
			// Never trim the only session, however large.
			return removed, nil
		}

		result, err := db.Exec(`
			DELETE FROM saved_sessions WHERE id = (
				SELECT id FROM saved_sessions ORDER BY created_at ASC, id ASC LIMIT 1
			)
		`)
		if err != nil {
			return removed, fmt.Errorf("trim session: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return removed, nil
		}
		removed++
	}
}
