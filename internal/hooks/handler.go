// Package hooks implements the Claude Code hook handlers: SessionStart
// injects the memory brief into a new session, SessionEnd condenses the
// finished transcript into a saved session summary. Handlers prefer the
// running server and degrade to opening the store directly, and they
// never fail loudly — hook errors go to stderr and the process still
// exits 0.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lazypower/keepsake/internal/config"
)

// Handle decodes the hook payload from stdin and dispatches on the
// event name. Output (SessionStart only) goes to stdout.
func Handle(event string, stdin io.Reader, stdout io.Writer) {
	cfg, err := config.Load("")
	if err != nil {
		cfg = config.Default()
	}

	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil {
		// Claude Code sends no stdin for some events; a start hook
		// still owes an (empty) answer.
		if event == "start" {
			writeSessionStart(stdout, "")
			return
		}
		warn(fmt.Errorf("decode stdin: %w", err))
		return
	}

	client := newServerClient(cfg.ServerURL())

	switch event {
	case "start":
		handleStart(cfg, client, &input, stdout)
	case "end":
		handleEnd(cfg, client, &input)
	default:
		warn(fmt.Errorf("unknown hook event: %s", event))
	}
}
