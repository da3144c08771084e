// Package config manages reel configuration and the ~/.reel directory
// structure. It handles loading, saving, and initializing the client
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	ReelDir         = ".reel"
	ConfigFile      = "config"
	CredentialsFile = "credentials.db"
	JournalFile     = "journal.db"
)

// Defaults applied when a field is unset.
const (
	DefaultServerURL      = "http://localhost:4000/graphql"
	DefaultPageSize       = 10
	DefaultTimeoutSeconds = 15
)

// Config represents the reel client configuration.
type Config struct {
	ServerURL      string `toml:"server_url"`
	PageSize       int    `toml:"page_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	path           string // path to the .reel directory
}

// Dir returns the path to the .reel directory in the user's home,
// creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ReelDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", ReelDir, err)
	}
	return dir, nil
}

// Load reads the configuration from the .reel directory. A missing
// config file yields the defaults, so first run needs no setup step.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return loadFrom(dir)
}

func loadFrom(dir string) (*Config, error) {
	cfg := &Config{path: dir}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if os.IsNotExist(err) {
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Timeout returns the configured per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the path to the .reel directory.
func (c *Config) Path() string {
	return c.path
}

// CredentialsPath returns the path to the bbolt credentials database.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.path, CredentialsFile)
}

// JournalPath returns the path to the SQLite activity journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.path, JournalFile)
}
