// Package config loads server configuration from an optional YAML file
// with environment overrides. Environment always wins so deployments can
// keep one file and vary secrets per host.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr string `yaml:"addr"`

	// Sheet backend: memory, csv, or sqlite.
	Store      string `yaml:"store"`
	SheetPath  string `yaml:"sheet_path"`
	SQLitePath string `yaml:"sqlite_path"`

	// Session backend: memory or redis.
	Sessions  string `yaml:"sessions"`
	RedisAddr string `yaml:"redis_addr"`

	// Account/assignment backend follows Store: sqlite when Store is
	// sqlite, memory otherwise.

	LLM LLMConfig `yaml:"llm"`

	// Where the consent gate sends each arm.
	ChatbotURL string `yaml:"chatbot_url"`
	StaticURL  string `yaml:"static_url"`

	// Cron spec for retrying queued sheet writes.
	FlushSchedule string `yaml:"flush_schedule"`
}

type LLMConfig struct {
	APIKey         string `yaml:"-"` // env only, never in the file
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func Default() Config {
	return Config{
		Addr:          ":8080",
		Store:         "memory",
		SheetPath:     "elli-sheet.csv",
		SQLitePath:    "elli.db",
		Sessions:      "memory",
		RedisAddr:     "localhost:6379",
		LLM:           LLMConfig{Model: "gpt-4o-mini", TimeoutSeconds: 10},
		ChatbotURL:    "/chat",
		StaticURL:     "/form",
		FlushSchedule: "@every 1m",
	}
}

// Load reads path (if non-empty and present) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.Addr, "ELLI_ADDR")
	setStr(&c.Store, "ELLI_STORE")
	setStr(&c.SheetPath, "ELLI_SHEET_PATH")
	setStr(&c.SQLitePath, "ELLI_SQLITE_PATH")
	setStr(&c.Sessions, "ELLI_SESSIONS")
	setStr(&c.RedisAddr, "ELLI_REDIS_ADDR")
	setStr(&c.LLM.APIKey, "OPENAI_API_KEY")
	setStr(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setStr(&c.LLM.Model, "ELLI_MODEL")
	setStr(&c.ChatbotURL, "ELLI_CHATBOT_URL")
	setStr(&c.StaticURL, "ELLI_STATIC_URL")
	setStr(&c.FlushSchedule, "ELLI_FLUSH_SCHEDULE")
	if v := os.Getenv("ELLI_LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LLM.TimeoutSeconds = n
		}
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// LLMTimeout returns the per-call deadline for language service requests.
func (c Config) LLMTimeout() time.Duration {
	if c.LLM.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}
