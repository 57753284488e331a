// Package config provides configuration loading and validation for girder.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Validation errors.
var (
	ErrInvalidPort        = errors.New("server port must be between 1 and 65535")
	ErrInvalidMaxAttempts = errors.New("reconnect max_attempts must be between 0 and 100")
)

// Default server endpoint.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8765
	DefaultPath = "/ws"
)

// Config represents the girder configuration file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	History   HistoryConfig   `toml:"history"`
	Reconnect ReconnectConfig `toml:"reconnect"`

	// AgentsFile points at the YAML agent catalog. Empty means
	// ~/.girder/agents.yaml.
	AgentsFile string `toml:"agents_file"`
}

// ServerConfig describes the supervisor endpoint.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Path string `toml:"path"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// File is the log file path. Empty means ~/.girder/girder.log.
	File string `toml:"file"`
}

// HistoryConfig controls the task-run history database.
type HistoryConfig struct {
	// Path is the SQLite file. Empty means ~/.girder/history.db.
	Path string `toml:"path"`
}

// ReconnectConfig tunes connection retry behavior.
type ReconnectConfig struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// BaseDelay returns the configured base delay, or zero when unset so
// the connection layer applies its own default.
func (r ReconnectConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the configured delay cap.
func (r ReconnectConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
			Path: DefaultPath,
		},
	}
}

// DefaultConfigPath returns the path to the girder config file
// (~/.girder/config.toml).
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".girder", "config.toml"), nil
}

// DataDir returns the girder data directory (~/.girder).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".girder"), nil
}

// Load loads the configuration from the default path. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the configuration from a specific path. A missing
// file yields the defaults; a malformed file is an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in zero-value fields after decoding, so a partial
// config file behaves like the defaults for everything it omits.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Reconnect.MaxAttempts < 0 || c.Reconnect.MaxAttempts > 100 {
		return ErrInvalidMaxAttempts
	}
	return nil
}

// URL returns the supervisor WebSocket URL.
func (c *Config) URL() string {
	return fmt.Sprintf("ws://%s:%d%s", c.Server.Host, c.Server.Port, c.Server.Path)
}

// ListenAddr returns the supervisor's bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HistoryPath returns the configured history database path, or the
// default under the data directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// AgentsPath returns the configured agent catalog path, or the default
// under the data directory.
func (c *Config) AgentsPath() (string, error) {
	if c.AgentsFile != "" {
		return c.AgentsFile, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "agents.yaml"), nil
}
