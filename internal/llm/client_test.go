package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/lazypower/keepsake/internal/config"
)

func TestNewClientClaudeCLI(t *testing.T) {
	cfg := config.LLMConfig{Provider: "claude-cli", Model: "haiku"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*ClaudeCLI); !ok {
		t.Errorf("expected *ClaudeCLI, got %T", client)
	}
}

func TestNewClientAnthropic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key", Model: "claude-haiku-4-5-20251001"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*Anthropic); !ok {
		t.Errorf("expected *Anthropic, got %T", client)
	}
}

func TestNewClientAnthropicMissingKey(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClientOllama(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama", OllamaModel: "llama3.2"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	o, ok := client.(*Ollama)
	if !ok {
		t.Fatalf("expected *Ollama, got %T", client)
	}
	if o.url != defaultOllamaURL {
		t.Errorf("url = %q, want default %q", o.url, defaultOllamaURL)
	}
}

func TestNewClientUnknown(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gpt"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestScrubEnv(t *testing.T) {
	env := []string{
		"HOME=/home/user",
		"CLAUDE_SESSION_ID=abc123",
		"CLAUDE_TRANSCRIPT=/tmp/t.jsonl",
		"PATH=/usr/bin",
	}
	scrubbed := scrubEnv(env)
	if len(scrubbed) != 2 {
		t.Errorf("expected 2 vars, got %d: %v", len(scrubbed), scrubbed)
	}
	for _, e := range scrubbed {
		if strings.HasPrefix(e, "CLAUDE_") {
			t.Errorf("CLAUDE_ var not scrubbed: %s", e)
		}
	}
}

func TestTrimBody(t *testing.T) {
	if got := trimBody([]byte("  short error  ")); got != "short error" {
		t.Errorf("trimBody = %q", got)
	}
	long := strings.Repeat("x", 1000)
	got := trimBody([]byte(long))
	if len(got) != 512+3 {
		t.Errorf("trimBody length = %d, want 515", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected truncation marker")
	}
}

func TestAuditPromptIncludesInputs(t *testing.T) {
	prompt := AuditPrompt("- id=1 [knowledge] sig=9 recall=100% stack: Go everywhere", "- [2026-01-05] refactored the parser")

	for _, want := range []string{"id=1", "refactored the parser", "JSON array", "prune"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAuditPromptEmptyInputs(t *testing.T) {
	prompt := AuditPrompt("", "")
	if !strings.Contains(prompt, "(store is empty)") {
		t.Error("empty inventory should be marked")
	}
	if !strings.Contains(prompt, "(no recent sessions)") {
		t.Error("empty activity should be marked")
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Complete(context.Background(), "test prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if len(mock.Prompts) != 1 || mock.Prompts[0] != "test prompt" {
		t.Errorf("prompts = %v, want recorded prompt", mock.Prompts)
	}
}

func TestMockClientDefaults(t *testing.T) {
	mock := &MockClient{}
	resp, err := mock.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp == nil || resp.Provider != "mock" {
		t.Errorf("resp = %+v, want non-nil mock default", resp)
	}
}
