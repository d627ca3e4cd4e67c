// Package config provides YAML-based configuration for excellor.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. EXCELLOR_CONFIG environment variable
//  3. ~/.excellor/config.yaml
//  4. ./excellor.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Embedding configures the remote embedding service.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Chat configures the remote chat completion endpoint the relay forwards to.
	Chat ChatConfig `yaml:"chat"`

	// Corpus configures local corpus persistence.
	Corpus CorpusConfig `yaml:"corpus"`

	// Search configures retrieval defaults.
	Search SearchConfig `yaml:"search"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// EmbeddingConfig holds remote embedding service settings.
type EmbeddingConfig struct {
	// Endpoint is the embeddings API URL (e.g. "https://api.openai.com/v1/embeddings").
	Endpoint string `yaml:"endpoint"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
}

// ChatConfig holds chat completion relay settings.
type ChatConfig struct {
	// Endpoint is the chat completions API URL.
	Endpoint string `yaml:"endpoint"`
	// Model is the completion model name forwarded with each relay request.
	Model string `yaml:"model"`
	// APIKey is the completion API key. Prefer env var CHAT_API_KEY.
	APIKey string `yaml:"api_key"`
}

// CorpusConfig holds local corpus store settings.
type CorpusConfig struct {
	// DBPath is the SQLite database path (default: ~/.excellor/corpus.db).
	DBPath string `yaml:"db_path"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	// TopK is the default number of chunks returned per query.
	TopK int `yaml:"top_k"`
	// Threshold is the minimum cosine similarity for a semantic match.
	Threshold float64 `yaml:"threshold"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var EXCELLOR_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"CHAT_ENDPOINT", func(c *Config) string { return c.Chat.Endpoint }},
	{"CHAT_MODEL", func(c *Config) string { return c.Chat.Model }},
	{"CHAT_API_KEY", func(c *Config) string { return c.Chat.APIKey }},
	{"EXCELLOR_CORPUS_DB", func(c *Config) string { return c.Corpus.DBPath }},
	{"SEARCH_TOP_K", func(c *Config) string { return intStr(c.Search.TopK) }},
	{"SEARCH_THRESHOLD", func(c *Config) string { return floatStr(c.Search.Threshold) }},
	{"EXCELLOR_HOST", func(c *Config) string { return c.Server.Host }},
	{"EXCELLOR_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"EXCELLOR_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("EXCELLOR_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".excellor", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("excellor.yaml"); err == nil {
		return "excellor.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
