package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" || cfg.Store != "memory" || cfg.Sessions != "memory" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.LLMTimeout() != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.LLMTimeout())
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elli.yaml")
	data := []byte("addr: \":9090\"\nstore: sqlite\nllm:\n  model: gpt-4o\n  timeout_seconds: 5\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ELLI_STORE", "csv")
	t.Setenv("ELLI_SHEET_PATH", "/tmp/sheet.csv")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q, want file value", cfg.Addr)
	}
	if cfg.Store != "csv" {
		t.Fatalf("store = %q, env must beat the file", cfg.Store)
	}
	if cfg.SheetPath != "/tmp/sheet.csv" || cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLMTimeout() != 5*time.Second {
		t.Fatalf("llm config: %+v", cfg.LLM)
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load("/nonexistent/elli.yaml"); err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
}
