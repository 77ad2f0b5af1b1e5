// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "chatcore.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sync.Timeout != 30*time.Second {
		t.Errorf("expected sync.timeout=30s, got %s", cfg.Sync.Timeout)
	}
	if cfg.Timeline.PageSize != 10 || cfg.Timeline.Minimum != 10 {
		t.Errorf("expected timeline 10/10, got %d/%d", cfg.Timeline.PageSize, cfg.Timeline.Minimum)
	}
	if cfg.Directory.PageSize != 20 {
		t.Errorf("expected directory.page_size=20, got %d", cfg.Directory.PageSize)
	}
	if cfg.Media.ThumbnailSize != 64 {
		t.Errorf("expected media.thumbnail_size=64, got %d", cfg.Media.ThumbnailSize)
	}
	if !strings.HasSuffix(cfg.CacheDirectory, filepath.Join(".cache", "chatcore")) {
		t.Errorf("unexpected cache_directory %s", cfg.CacheDirectory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresChatcoreConfig(t *testing.T) {
	t.Setenv("CHATCORE_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when CHATCORE_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "CHATCORE_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithChatcoreConfig(t *testing.T) {
	configPath := writeConfig(t, `
homeserver: https://matrix.example.org
cache_directory: /test/cache
`)
	t.Setenv("CHATCORE_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Homeserver != "https://matrix.example.org" {
		t.Errorf("expected homeserver from file, got %s", cfg.Homeserver)
	}
	if cfg.CacheDirectory != "/test/cache" {
		t.Errorf("expected cache_directory=/test/cache, got %s", cfg.CacheDirectory)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
homeserver: https://chat.example.org
device_display_name: laptop
log_level: debug

sync:
  timeout: 5s

timeline:
  page_size: 25
  minimum: 40

directory:
  page_size: 50

media:
  thumbnail_size: 96
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.DeviceDisplayName != "laptop" {
		t.Errorf("expected device_display_name=laptop, got %s", cfg.DeviceDisplayName)
	}
	if cfg.Sync.Timeout != 5*time.Second {
		t.Errorf("expected sync.timeout=5s, got %s", cfg.Sync.Timeout)
	}
	if cfg.Timeline.PageSize != 25 || cfg.Timeline.Minimum != 40 {
		t.Errorf("expected timeline 25/40, got %d/%d", cfg.Timeline.PageSize, cfg.Timeline.Minimum)
	}
	if cfg.Directory.PageSize != 50 {
		t.Errorf("expected directory.page_size=50, got %d", cfg.Directory.PageSize)
	}
	if cfg.Media.ThumbnailSize != 96 {
		t.Errorf("expected media.thumbnail_size=96, got %d", cfg.Media.ThumbnailSize)
	}
	// Unset fields keep their defaults.
	if cfg.CacheDirectory != Default().CacheDirectory {
		t.Errorf("expected default cache_directory, got %s", cfg.CacheDirectory)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error in chain, got %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	configPath := writeConfig(t, "sync: [not, a, map]\n")
	if _, err := LoadFile(configPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CHATCORE_TEST_VAR", "from-env")

	tests := []struct {
		name     string
		input    string
		vars     map[string]string
		expected string
	}{
		{"simple", "${HOME}/cache", map[string]string{"HOME": "/home/user"}, "/home/user/cache"},
		{"default used", "${UNSET_CHATCORE_VAR:-/fallback}", nil, "/fallback"},
		{"environment", "${CHATCORE_TEST_VAR}/x", nil, "from-env/x"},
		{"no pattern", "/plain/path", nil, "/plain/path"},
		{"empty var uses default", "${EMPTY:-dflt}", map[string]string{"EMPTY": ""}, "dflt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandVars(tt.input, tt.vars); got != tt.expected {
				t.Errorf("expandVars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadFile_ExpandsCacheDirectory(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	configPath := writeConfig(t, "cache_directory: ${HOME}/media\n")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CacheDirectory != "/home/tester/media" {
		t.Errorf("expected expanded cache_directory, got %s", cfg.CacheDirectory)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero page size", func(c *Config) { c.Timeline.PageSize = 0 }, "timeline.page_size"},
		{"negative minimum", func(c *Config) { c.Timeline.Minimum = -1 }, "timeline.minimum"},
		{"zero directory page", func(c *Config) { c.Directory.PageSize = 0 }, "directory.page_size"},
		{"zero thumbnail", func(c *Config) { c.Media.ThumbnailSize = 0 }, "media.thumbnail_size"},
		{"negative timeout", func(c *Config) { c.Sync.Timeout = -time.Second }, "sync.timeout"},
		{"empty cache", func(c *Config) { c.CacheDirectory = "" }, "cache_directory"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Timeline.PageSize = 0
	cfg.Directory.PageSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "timeline.page_size") || !strings.Contains(err.Error(), "directory.page_size") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLogLevel(input)
		if err != nil {
			t.Errorf("ParseLogLevel(%q): %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestEnsureCacheDirectory(t *testing.T) {
	cfg := Default()
	cfg.CacheDirectory = filepath.Join(t.TempDir(), "nested", "cache")
	if err := cfg.EnsureCacheDirectory(); err != nil {
		t.Fatalf("EnsureCacheDirectory: %v", err)
	}
	info, err := os.Stat(cfg.CacheDirectory)
	if err != nil || !info.IsDir() {
		t.Fatalf("cache directory not created: %v", err)
	}
}
