package hooks

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/config"
	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/store"
)

// handleStart answers the SessionStart hook with the memory brief as
// additional context. The running server is asked first; when it is
// down the hook compiles the context straight from the store so memory
// still arrives.
func handleStart(cfg config.Config, client *serverClient, input *HookInput, out io.Writer) {
	project := input.Project()

	if ctx, ok := client.SessionContext(project); ok {
		writeSessionStart(out, ctx)
		return
	}

	writeSessionStart(out, directContext(cfg, project))
}

// directContext compiles the session context without the server. Every
// failure degrades to an empty context; a hook must never block a
// session from starting.
func directContext(cfg config.Config, project string) string {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return ""
		}
	}
	if _, err := os.Stat(dbPath); err != nil {
		return "" // no store yet, nothing to inject
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return ""
	}
	defer db.Close()

	eng := engine.New(db, zap.NewNop())
	eng.BriefMaxChars = cfg.Brief.MaxChars
	ctx, err := eng.SessionContext(engine.BriefScope{Project: project})
	if err != nil {
		return ""
	}
	return ctx
}
