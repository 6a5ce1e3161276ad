package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/memory"
	"github.com/lazypower/keepsake/internal/store"
)

// SaveSession stores one session summary and then trims the session log
// back under its byte budget, oldest first. Saving the same session id
// twice refreshes the stored summary instead of duplicating it.
func (e *Engine) SaveSession(s *store.SavedSession) error {
	if strings.TrimSpace(s.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", memory.ErrInvalidInput)
	}
	if strings.TrimSpace(s.Summary) == "" {
		return fmt.Errorf("%w: session summary is empty", memory.ErrInvalidInput)
	}

	if err := e.DB.SaveSession(s); err != nil {
		return err
	}

	removed, err := e.DB.TrimSessions(e.SessionMaxBytes)
	if err != nil {
		return err
	}
	if removed > 0 {
		e.Logger.Info("session log trimmed",
			zap.Int("removed", removed),
			zap.Int64("budget_bytes", e.SessionMaxBytes))
	}

	e.Logger.Info("session saved",
		zap.String("session_id", s.SessionID),
		zap.String("project", s.Project))
	return nil
}
