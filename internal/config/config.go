// Package config handles configuration and session cookie management for manualqa.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// ServerURL is the base URL of the Q&A server, without trailing slash.
	ServerURL string `json:"server_url" env:"MANUALQA_SERVER_URL"`
	// Anonymous forces anonymous mode even when session cookies exist.
	Anonymous bool `json:"anonymous" env:"MANUALQA_ANONYMOUS"`
	// TimeoutSeconds bounds a single HTTP request.
	TimeoutSeconds  int            `json:"timeout_seconds" env:"MANUALQA_TIMEOUT_SECONDS"`
	Verbose         bool           `json:"verbose" env:"MANUALQA_VERBOSE"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	ExportDir       string         `json:"export_dir,omitempty" env:"MANUALQA_EXPORT_DIR"`
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
		ServerURL:       "http://localhost:8000",
		Anonymous:       false,
		TimeoutSeconds:  300,
		Verbose:         false,
		CopyToClipboard: false,
		ExportDir:       ".",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".manualqa"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds session cookies
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

// GetCookiesPath returns the path to the cookies file
func GetCookiesPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// GetLogPath returns the path of the chat log file
func GetLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "manualqa.log"), nil
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return cfg, nil
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

// SetValue updates a single configuration key given as text
func SetValue(cfg *Config, key, value string) error {
	parseBool := func() (bool, error) {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean for %s: %s", key, value)
	}

	switch key {
	case "server_url":
		cfg.ServerURL = strings.TrimRight(value, "/")
	case "anonymous":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Anonymous = b
	case "verbose":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Verbose = b
	case "copy_to_clipboard":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.CopyToClipboard = b
	case "timeout_seconds":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("invalid timeout: %s", value)
		}
		cfg.TimeoutSeconds = n
	case "export_dir":
		cfg.ExportDir = value
	case "markdown.style":
		cfg.Markdown.Style = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Keys returns the keys accepted by SetValue
func Keys() []string {
	return []string{
		"server_url",
		"anonymous",
		"timeout_seconds",
		"verbose",
		"copy_to_clipboard",
		"export_dir",
		"markdown.style",
	}
}
