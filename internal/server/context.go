package server

import (
	"encoding/json"
	"net/http"

	"github.com/lazypower/keepsake/internal/engine"
)

// handleContext serves the session-start payload the hooks inject: the
// memory brief framed for a fresh session, or an empty string when the
// store holds nothing worth injecting. GET /api/brief returns the raw
// document; this endpoint owns the framing so the hook and any other
// caller agree on it.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")

	ctx, err := s.engine.SessionContext(engine.BriefScope{Project: project})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"project": project,
		"context": ctx,
	})
}
