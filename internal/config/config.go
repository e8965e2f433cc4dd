// Package config handles configuration and persona management for chatai.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diogo/chatai/internal/models"
)

// Environment variables that override the config file
const (
	EnvHome    = "CHATAI_HOME"
	EnvBaseURL = "CHATAI_BASE_URL"
	EnvModel   = "CHATAI_MODEL"
)

// Storage backends for local transcript history
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // glamour style name or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	BaseURL      string  `json:"base_url"`
	DefaultModel string  `json:"default_model"`
	Temperature  float64 `json:"temperature"`
	// SystemPrompt is sent with every message unless a persona overrides it.
	SystemPrompt string `json:"system_prompt,omitempty"`
	Persona      string `json:"persona,omitempty"`
	// TimeoutSeconds bounds a whole request, stream body included.
	TimeoutSeconds int `json:"timeout_seconds"`
	// RenderFPS caps how often a streaming answer is re-rendered.
	// Zero renders on every chunk.
	RenderFPS       int            `json:"render_fps"`
	Verbose         bool           `json:"verbose"`
	LogLevel        string         `json:"log_level,omitempty"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	StoreBackend    string         `json:"store_backend"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:         models.DefaultBaseURL,
		DefaultModel:    models.DefaultModel,
		Temperature:     models.DefaultTemperature,
		TimeoutSeconds:  300,
		RenderFPS:       30,
		Verbose:         false,
		LogLevel:        "warn",
		CopyToClipboard: false,
		StoreBackend:    StoreJSON,
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".chatai"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.DefaultModel = v
	}
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Keys returns the names accepted by Set, in display order
func Keys() []string {
	return []string{
		"base_url",
		"default_model",
		"temperature",
		"system_prompt",
		"persona",
		"timeout_seconds",
		"render_fps",
		"verbose",
		"log_level",
		"copy_to_clipboard",
		"store_backend",
		"markdown.style",
	}
}

// Set updates a single field by its JSON key, validating the value.
func (c *Config) Set(key, value string) error {
	switch key {
	case "base_url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("base_url must start with http:// or https://")
		}
		c.BaseURL = strings.TrimRight(value, "/")
	case "default_model":
		c.DefaultModel = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("temperature must be a number between 0 and 2")
		}
		c.Temperature = f
	case "system_prompt":
		c.SystemPrompt = value
	case "persona":
		c.Persona = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive integer")
		}
		c.TimeoutSeconds = n
	case "render_fps":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("render_fps must be zero or a positive integer")
		}
		c.RenderFPS = n
	case "verbose", "copy_to_clipboard":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		if key == "verbose" {
			c.Verbose = b
		} else {
			c.CopyToClipboard = b
		}
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
			c.LogLevel = value
		default:
			return fmt.Errorf("log_level must be one of debug, info, warn, error")
		}
	case "store_backend":
		if value != StoreJSON && value != StoreSQLite {
			return fmt.Errorf("store_backend must be %q or %q", StoreJSON, StoreSQLite)
		}
		c.StoreBackend = value
	case "markdown.style":
		c.Markdown.Style = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
