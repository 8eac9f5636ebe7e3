// Package config loads settings from defaults, an optional YAML file and the
// environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"forge/internal/db"
	"forge/internal/llm"
	"forge/internal/models"
)

type Config struct {
	// Endpoint
	BaseURL       string  `yaml:"base_url"`
	DefaultAPIKey string  `yaml:"default_api_key"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	MaxToolCalls  int     `yaml:"max_tool_calls"`

	// Storage
	DBPath string `yaml:"db_path"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

func Defaults() *Config {
	dbPath, err := db.DefaultPath()
	if err != nil {
		dbPath = "forge.db"
	}
	return &Config{
		BaseURL:      llm.DefaultBaseURL,
		Model:        models.AvailableModels[0].ID,
		Temperature:  0.7,
		MaxToolCalls: 10,
		DBPath:       dbPath,
		LogLevel:     "info",
		LogFormat:    "json",
		LogFile:      filepath.Join(filepath.Dir(dbPath), "forge.log"),
	}
}

// DefaultFilePath is <user config dir>/forge/config.yaml.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "forge", "config.yaml")
}

// Load reads .env (if present), then the YAML file named by FORGE_CONFIG or
// the default location, then FORGE_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()

	path := os.Getenv("FORGE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = envOr("FORGE_BASE_URL", c.BaseURL)
	c.DefaultAPIKey = envOr("FORGE_DEFAULT_API_KEY", c.DefaultAPIKey)
	c.Model = envOr("FORGE_MODEL", c.Model)
	c.Temperature = envFloat("FORGE_TEMPERATURE", c.Temperature)
	c.MaxToolCalls = envInt("FORGE_MAX_TOOL_CALLS", c.MaxToolCalls)
	c.DBPath = envOr("FORGE_DB_PATH", c.DBPath)
	c.LogLevel = envOr("FORGE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("FORGE_LOG_FORMAT", c.LogFormat)
	c.LogFile = envOr("FORGE_LOG_FILE", c.LogFile)
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MaxToolCalls <= 0 {
		return fmt.Errorf("max_tool_calls must be positive, got %d", c.MaxToolCalls)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %g", c.Temperature)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
