package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  endpoint: https://api.openai.com/v1/embeddings
  model: text-embedding-3-large
chat:
  endpoint: https://api.openai.com/v1/chat/completions
  model: gpt-4o-mini
corpus:
  db_path: /data/corpus.db
search:
  top_k: 5
  threshold: 0.25
server:
  host: 0.0.0.0
  port: 9090
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"EMBEDDING_ENDPOINT", "EMBEDDING_MODEL",
		"CHAT_ENDPOINT", "CHAT_MODEL",
		"EXCELLOR_CORPUS_DB",
		"SEARCH_TOP_K", "SEARCH_THRESHOLD",
		"EXCELLOR_HOST", "EXCELLOR_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"EMBEDDING_ENDPOINT": "https://api.openai.com/v1/embeddings",
		"EMBEDDING_MODEL":    "text-embedding-3-large",
		"CHAT_ENDPOINT":      "https://api.openai.com/v1/chat/completions",
		"CHAT_MODEL":         "gpt-4o-mini",
		"EXCELLOR_CORPUS_DB": "/data/corpus.db",
		"SEARCH_TOP_K":       "5",
		"SEARCH_THRESHOLD":   "0.25",
		"EXCELLOR_HOST":      "0.0.0.0",
		"EXCELLOR_PORT":      "9090",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  model: text-embedding-3-small
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EMBEDDING_MODEL", "text-embedding-3-large")

	log := slog.Default()
	if _, err := Load(cfgPath, log); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("EMBEDDING_MODEL"); got != "text-embedding-3-large" {
		t.Errorf("env var should win over YAML: got %q", got)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	if _, err := Load(cfgPath, log); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}
