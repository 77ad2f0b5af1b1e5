// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a chatcore client.
type Config struct {
	// Homeserver is the base URL of the Matrix homeserver, for example
	// "https://matrix.example.org". Command-line flags may override it.
	Homeserver string `yaml:"homeserver"`

	// CacheDirectory is where downloaded media and thumbnails are kept.
	// Default: ${HOME}/.cache/chatcore
	CacheDirectory string `yaml:"cache_directory"`

	// DeviceDisplayName is sent with password login and registration.
	// Default: chatcore
	DeviceDisplayName string `yaml:"device_display_name"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	Sync      SyncConfig      `yaml:"sync"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Directory DirectoryConfig `yaml:"directory"`
	Media     MediaConfig     `yaml:"media"`
}

// SyncConfig configures the sync engine.
type SyncConfig struct {
	// Timeout is the long-poll timeout sent with incremental syncs.
	// The dispatcher is busy for up to this long on each sync, so
	// interactive callers may want it short.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// TimelineConfig configures backward pagination.
type TimelineConfig struct {
	// PageSize is the limit sent with each /messages request.
	// Default: 10
	PageSize int `yaml:"page_size"`

	// Minimum is how many messages the initial load of a room collects
	// before it stops paging (unless history ends first).
	// Default: 10
	Minimum int `yaml:"minimum"`
}

// DirectoryConfig configures public room directory search.
type DirectoryConfig struct {
	// PageSize is the limit sent with each /publicRooms request.
	// Default: 20
	PageSize int `yaml:"page_size"`
}

// MediaConfig configures media thumbnails.
type MediaConfig struct {
	// ThumbnailSize is the width and height requested for thumbnails.
	// Default: 64
	ThumbnailSize int `yaml:"thumbnail_size"`
}

// Default returns the default configuration. These values are the base
// the config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		CacheDirectory:    filepath.Join(homeDir, ".cache", "chatcore"),
		DeviceDisplayName: "chatcore",
		LogLevel:          "info",
		Sync: SyncConfig{
			Timeout: 30 * time.Second,
		},
		Timeline: TimelineConfig{
			PageSize: 10,
			Minimum:  10,
		},
		Directory: DirectoryConfig{
			PageSize: 20,
		},
		Media: MediaConfig{
			ThumbnailSize: 64,
		},
	}
}

// Load loads configuration from the CHATCORE_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// If CHATCORE_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("CHATCORE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CHATCORE_CONFIG environment variable not set; " +
			"set it to the path of your chatcore.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// [Default]. The only expansion performed is ${HOME} and similar
// variables in the cache directory.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":           os.Getenv("HOME"),
		"CHATCORE_CACHE": os.Getenv("CHATCORE_CACHE"),
	}
	c.CacheDirectory = expandVars(c.CacheDirectory, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.CacheDirectory == "" {
		errs = append(errs, fmt.Errorf("cache_directory is required"))
	}
	if c.Sync.Timeout < 0 {
		errs = append(errs, fmt.Errorf("sync.timeout must not be negative, got %s", c.Sync.Timeout))
	}
	if c.Timeline.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("timeline.page_size must be positive, got %d", c.Timeline.PageSize))
	}
	if c.Timeline.Minimum <= 0 {
		errs = append(errs, fmt.Errorf("timeline.minimum must be positive, got %d", c.Timeline.Minimum))
	}
	if c.Directory.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("directory.page_size must be positive, got %d", c.Directory.PageSize))
	}
	if c.Media.ThumbnailSize <= 0 {
		errs = append(errs, fmt.Errorf("media.thumbnail_size must be positive, got %d", c.Media.ThumbnailSize))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParseLogLevel maps a log_level value to a slog level. The empty
// string means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", level)
	}
}

// EnsureCacheDirectory creates the cache directory if it does not exist.
func (c *Config) EnsureCacheDirectory() error {
	if err := os.MkdirAll(c.CacheDirectory, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.CacheDirectory, err)
	}
	return nil
}
