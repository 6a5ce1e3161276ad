package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all keepsake configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Hooks    HooksConfig    `toml:"hooks"`
	Brief    BriefConfig    `toml:"brief"`
	Sessions SessionsConfig `toml:"sessions"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider     string `toml:"provider"` // "claude-cli", "anthropic", "ollama"
	Model        string `toml:"model"`    // e.g. "haiku", "sonnet"
	OllamaURL    string `toml:"ollama_url"`
	OllamaModel  string `toml:"ollama_model"` // e.g. "llama3.2"
	AnthropicKey string `toml:"anthropic_key"`
}

type HooksConfig struct {
	Enabled bool `toml:"enabled"`
	Timeout int  `toml:"timeout"` // seconds
}

type BriefConfig struct {
	MaxChars int `toml:"max_chars"`
}

type SessionsConfig struct {
	MaxBytes int64 `toml:"max_bytes"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error", "off"
	Dir   string `toml:"dir"`   // file log directory; empty disables file logs
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37077,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider: "claude-cli",
			Model:    "haiku",
		},
		Hooks: HooksConfig{
			Enabled: true,
			Timeout: 120,
		},
		Brief: BriefConfig{
			MaxChars: 16 * 1024,
		},
		Sessions: SessionsConfig{
			MaxBytes: 200 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.keepsake/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".keepsake", "config.toml")
}

// DataDir returns ~/.keepsake, creating it if missing. Audit reports
// and file logs land here.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	dir := filepath.Join(home, ".keepsake")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// Load reads TOML config from path, falling back to defaults when the
// file does not exist. An empty path means DefaultPath(). Environment
// variables override the file afterwards: KEEPSAKE_DB for the database
// path, KEEPSAKE_URL for the server URL, ANTHROPIC_API_KEY for the API
// key when the file left it blank.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file is the common case; defaults apply.
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KEEPSAKE_DB"); v != "" {
		cfg.Database.Path = v
	}
	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ServerURL returns the base URL hooks and CLI clients should call.
// KEEPSAKE_URL wins over the configured bind address, mirroring the
// KEEPSAKE_DB override.
func (c *Config) ServerURL() string {
	if v := os.Getenv("KEEPSAKE_URL"); v != "" {
		return v
	}
	return fmt.Sprintf("http://%s", c.ListenAddr())
}
