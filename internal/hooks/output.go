package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SessionStartOutput is the JSON Claude Code expects on stdout from the
// SessionStart hook. Anything in additionalContext is injected into the
// new session verbatim.
type SessionStartOutput struct {
	HookSpecificOutput struct {
		HookEventName     string `json:"hookEventName"`
		AdditionalContext string `json:"additionalContext"`
	} `json:"hookSpecificOutput"`
}

func writeSessionStart(w io.Writer, context string) {
	var out SessionStartOutput
	out.HookSpecificOutput.HookEventName = "SessionStart"
	out.HookSpecificOutput.AdditionalContext = context
	if err := json.NewEncoder(w).Encode(out); err != nil {
		warn(fmt.Errorf("write hook output: %w", err))
	}
}

// warn reports a hook failure on stderr and nothing else. Hooks always
// exit 0; a broken store must never block the assistant.
func warn(err error) {
	fmt.Fprintf(os.Stderr, "keepsake hook: %v\n", err)
}
