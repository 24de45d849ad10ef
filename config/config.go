package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Environment variables that take precedence over the config file.
const (
	EnvBaseURL  = "TJCHAT_BASE_URL"
	EnvLogLevel = "TJCHAT_LOG_LEVEL"
)

// Config represents the tjchat configuration
type Config struct {
	BaseURL      string `json:"base_url"`      // API root, e.g. http://localhost:8000/api
	HistoryLimit int    `json:"history_limit"` // Messages fetched when a chat is opened
	HTTPTimeout  int    `json:"http_timeout"`  // Seconds; 0 disables the client timeout
	LogLevel     string `json:"log_level"`
	Theme        string `json:"theme"` // auto, dark or light
	Hyperlinks   bool   `json:"hyperlinks"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "http://localhost:8000/api",
		HistoryLimit: 30,
		HTTPTimeout:  0,
		LogLevel:     "info",
		Theme:        "auto",
		Hyperlinks:   true,
	}
}

// LoadConfig loads configuration from path on top of the defaults, then
// applies environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}

// Validate reports the first field holding an unusable value.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %d", c.HTTPTimeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("theme must be auto, dark or light, got %q", c.Theme)
	}
	return nil
}

// Keys lists the settable configuration keys in display order.
func Keys() []string {
	return []string{"base_url", "history_limit", "http_timeout", "log_level", "theme", "hyperlinks"}
}

// Get retrieves a configuration value by key
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "base_url":
		return c.BaseURL, nil
	case "history_limit":
		return c.HistoryLimit, nil
	case "http_timeout":
		return c.HTTPTimeout, nil
	case "log_level":
		return c.LogLevel, nil
	case "theme":
		return c.Theme, nil
	case "hyperlinks":
		return c.Hyperlinks, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value by key
func (c *Config) Set(key string, value interface{}) error {
	// CLI input is always a string
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string value for %s", key)
	}

	next := *c
	switch key {
	case "base_url":
		next.BaseURL = strings.TrimRight(str, "/")
	case "history_limit":
		val, err := strconv.Atoi(str)
		if err != nil || val <= 0 {
			return fmt.Errorf("expected positive number for history_limit, got: %s", str)
		}
		next.HistoryLimit = val
	case "http_timeout":
		val, err := strconv.Atoi(str)
		if err != nil || val < 0 {
			return fmt.Errorf("expected seconds (0 for none) for http_timeout, got: %s", str)
		}
		next.HTTPTimeout = val
	case "log_level":
		next.LogLevel = str
	case "theme":
		next.Theme = str
	case "hyperlinks":
		val, err := strconv.ParseBool(str)
		if err != nil {
			return fmt.Errorf("expected 'true' or 'false' for hyperlinks, got: %s", str)
		}
		next.Hyperlinks = val
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
