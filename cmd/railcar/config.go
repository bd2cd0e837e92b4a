package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/railcar-dev/railcar/internal/scheduler"
)

// Config holds all railcar configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	WorkflowsDir string `json:"workflows_dir"`
	PersonasDir  string `json:"personas_dir"`
	PromptsDir   string `json:"prompts_dir"`
	WorkDir      string `json:"work_dir"` // empty means the current directory
	DBPath       string `json:"db_path"`
	LogLevel     string `json:"log_level"`

	LLMBaseURL string `json:"llm_base_url"`
	LLMAPIKey  string `json:"llm_api_key"`
	LLMModel   string `json:"llm_model"`

	Schedules []scheduler.Entry `json:"schedules,omitempty"`
}

func defaultConfig() Config {
	dir := railcarDir()
	return Config{
		WorkflowsDir: filepath.Join(dir, "workflows"),
		PersonasDir:  filepath.Join(dir, "personas"),
		PromptsDir:   filepath.Join(dir, "prompts"),
		DBPath:       filepath.Join(dir, "history.db"),
		LogLevel:     "info",
	}
}

func railcarDir() string {
	if v := os.Getenv("RAILCAR_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".railcar"
	}
	return filepath.Join(home, ".railcar")
}

func settingsPath() string {
	return filepath.Join(railcarDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("RAILCAR_WORKFLOWS_DIR"); v != "" {
		cfg.WorkflowsDir = v
	}
	if v := os.Getenv("RAILCAR_PERSONAS_DIR"); v != "" {
		cfg.PersonasDir = v
	}
	if v := os.Getenv("RAILCAR_PROMPTS_DIR"); v != "" {
		cfg.PromptsDir = v
	}
	if v := os.Getenv("RAILCAR_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("RAILCAR_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RAILCAR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RAILCAR_LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("RAILCAR_LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("RAILCAR_LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}

	return cfg
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
