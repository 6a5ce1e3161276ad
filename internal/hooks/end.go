package hooks

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/config"
	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/store"
	"github.com/lazypower/keepsake/internal/transcript"
)

// sessionPayload matches the POST /api/sessions request body.
type sessionPayload struct {
	SessionID    string   `json:"session_id"`
	Project      string   `json:"project"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed"`
}

// minUserMessages is the floor below which a session is not worth
// remembering. A single exchange is usually a quick question or an
// aborted start.
const minUserMessages = 2

// handleEnd condenses the finished session's transcript and saves it as
// a session summary, so the next session's brief can mention it.
func handleEnd(cfg config.Config, client *serverClient, input *HookInput) {
	if input.SessionID == "" || input.TranscriptPath == "" {
		return
	}

	entries, err := transcript.ParseFile(input.TranscriptPath)
	if err != nil {
		warn(fmt.Errorf("parse transcript: %w", err))
		return
	}
	if transcript.CountUserMessages(entries) < minUserMessages {
		return
	}

	summary := transcript.Summarize(entries)
	if summary == "" {
		return // nothing happened worth remembering
	}

	payload := sessionPayload{
		SessionID:    input.SessionID,
		Project:      input.Project(),
		Summary:      summary,
		FilesChanged: transcript.ChangedFiles(entries),
	}

	if client.SaveSession(payload) == nil {
		return
	}

	if err := directSaveSession(cfg, payload); err != nil {
		warn(fmt.Errorf("save session: %w", err))
	}
}

// directSaveSession writes the summary straight to the database when the
// server is unreachable.
func directSaveSession(cfg config.Config, p sessionPayload) error {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return err
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.New(db, zap.NewNop())
	eng.SessionMaxBytes = cfg.Sessions.MaxBytes
	return eng.SaveSession(&store.SavedSession{
		SessionID:    p.SessionID,
		Project:      p.Project,
		Summary:      p.Summary,
		FilesChanged: p.FilesChanged,
	})
}
