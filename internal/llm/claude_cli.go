package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ClaudeCLI shells out to `claude -p`, the default provider: it reuses
// whatever auth the installed CLI already has.
type ClaudeCLI struct {
	bin     string
	model   string
	timeout time.Duration
}

func NewClaudeCLI(model string) *ClaudeCLI {
	return &ClaudeCLI{
		bin:     "claude",
		model:   model,
		timeout: completionTimeout,
	}
}

// Complete pipes the prompt through the CLI in print mode, capped at a
// single turn.
func (c *ClaudeCLI) Complete(ctx context.Context, prompt string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, "-p", "--model", c.model, "--max-turns", "1")
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Env = scrubEnv(os.Environ())

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("claude cli: %w (stderr: %s)", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("claude cli: %w", err)
	}

	content := strings.TrimSpace(string(out))
	if content == "" {
		return nil, fmt.Errorf("claude cli returned no output")
	}

	return &Response{
		Content:  content,
		Provider: ProviderClaudeCLI,
	}, nil
}

// scrubEnv drops CLAUDE_* variables so the nested CLI does not treat
// the audit as part of the session that launched it and re-trigger our
// own hooks.
func scrubEnv(env []string) []string {
	scrubbed := make([]string, 0, len(env))
	for _, e := range env {
		if strings.HasPrefix(e, "CLAUDE_") {
			continue
		}
		scrubbed = append(scrubbed, e)
	}
	return scrubbed
}
