package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 37077 {
		t.Errorf("port = %d, want 37077", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "claude-cli" {
		t.Errorf("provider = %q, want claude-cli", cfg.LLM.Provider)
	}
	if cfg.Brief.MaxChars != 16*1024 {
		t.Errorf("brief max chars = %d, want %d", cfg.Brief.MaxChars, 16*1024)
	}
	if cfg.Sessions.MaxBytes != 200*1024*1024 {
		t.Errorf("session budget = %d, want %d", cfg.Sessions.MaxBytes, int64(200*1024*1024))
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("KEEPSAKE_DB", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("missing file should yield defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("KEEPSAKE_DB", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
port = 40123

[llm]
provider = "ollama"
ollama_model = "llama3.2"

[brief]
max_chars = 4096
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 40123 {
		t.Errorf("port = %d, want 40123", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", cfg.LLM.Provider)
	}
	if cfg.Brief.MaxChars != 4096 {
		t.Errorf("brief max chars = %d, want 4096", cfg.Brief.MaxChars)
	}
	// Sections the file omits keep their defaults.
	if !cfg.Hooks.Enabled {
		t.Error("hooks should default to enabled")
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nport ="), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KEEPSAKE_DB", "/tmp/other.db")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("db path = %q, want /tmp/other.db", cfg.Database.Path)
	}
	if cfg.LLM.AnthropicKey != "env-key" {
		t.Errorf("api key = %q, want env-key", cfg.LLM.AnthropicKey)
	}
}

func TestServerURL(t *testing.T) {
	t.Setenv("KEEPSAKE_URL", "")

	cfg := Default()
	if got := cfg.ServerURL(); got != "http://127.0.0.1:37077" {
		t.Errorf("ServerURL = %q", got)
	}

	cfg.Server.Port = 40123
	if got := cfg.ServerURL(); got != "http://127.0.0.1:40123" {
		t.Errorf("ServerURL = %q", got)
	}
}

func TestServerURLEnvOverride(t *testing.T) {
	t.Setenv("KEEPSAKE_URL", "http://10.0.0.5:9000")

	cfg := Default()
	if got := cfg.ServerURL(); got != "http://10.0.0.5:9000" {
		t.Errorf("ServerURL = %q, want env value", got)
	}
}
