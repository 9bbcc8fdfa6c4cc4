// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Paths
	Source  string `json:"source,omitempty"`  // Path to the data file (csv, tsv, json, xml, xlsx)
	Gallery string `json:"gallery,omitempty"` // Path to the SQLite gallery file

	// Providers
	APIKey        string `json:"api_key,omitempty"`        // Gemini API key
	ModelLite     string `json:"model_lite,omitempty"`     // Override for the lite tier
	ModelStandard string `json:"model_standard,omitempty"` // Override for the standard tier
	ModelAdvanced string `json:"model_advanced,omitempty"` // Override for the advanced tier
	DatabaseURL   string `json:"database_url,omitempty"`   // PostgreSQL gallery URL (overrides Gallery)

	// Limits
	SandboxTimeoutSec int     `json:"sandbox_timeout_sec,omitempty"` // Wall-clock budget per generated program
	SandboxMaxCells   int     `json:"sandbox_max_cells,omitempty"`   // Dataset growth budget (rows x columns)
	MaxAttempts       int     `json:"max_attempts,omitempty"`        // Correction-loop bound
	AcceptConfidence  float64 `json:"accept_confidence,omitempty"`   // Detection confidence to auto-transform (0.0-1.0)

	// Behavior
	DropTagColumns bool   `json:"drop_tag_columns,omitempty"` // Drop originals after tag explosion
	Verbose        bool   `json:"verbose,omitempty"`          // Print detailed progress
	ListenAddr     string `json:"listen_addr,omitempty"`      // HTTP server bind address
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are enforced by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.SandboxTimeoutSec < 0 {
		return fmt.Errorf("config error: 'sandbox_timeout_sec' must be non-negative")
	}
	if c.SandboxMaxCells < 0 {
		return fmt.Errorf("config error: 'sandbox_max_cells' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.AcceptConfidence < 0 || c.AcceptConfidence > 1 {
		return fmt.Errorf("config error: 'accept_confidence' must be between 0 and 1")
	}

	if c.Source != "" {
		if _, err := os.Stat(c.Source); os.IsNotExist(err) {
			return fmt.Errorf("config error: source file not found: %s", c.Source)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Source == "" {
		result.Source = defaults.Source
	}
	if result.Gallery == "" {
		result.Gallery = defaults.Gallery
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ModelLite == "" {
		result.ModelLite = defaults.ModelLite
	}
	if result.ModelStandard == "" {
		result.ModelStandard = defaults.ModelStandard
	}
	if result.ModelAdvanced == "" {
		result.ModelAdvanced = defaults.ModelAdvanced
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}

	if result.SandboxTimeoutSec == 0 {
		result.SandboxTimeoutSec = defaults.SandboxTimeoutSec
	}
	if result.SandboxMaxCells == 0 {
		result.SandboxMaxCells = defaults.SandboxMaxCells
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.AcceptConfidence == 0 {
		result.AcceptConfidence = defaults.AcceptConfidence
	}

	// Bool fields cannot distinguish unset from false, so a true on either
	// side wins. An explicit false flag cannot override a true file value.
	result.DropTagColumns = result.DropTagColumns || defaults.DropTagColumns
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}
