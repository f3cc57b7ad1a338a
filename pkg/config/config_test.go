package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittosession/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

api:
  port: 8080

session:
  max_inactive_interval: 45m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Session.MaxInactiveInterval != 45*time.Minute {
		t.Errorf("Expected max_inactive_interval 45m, got %v", cfg.Session.MaxInactiveInterval)
	}
	if !cfg.Session.IsMarshalling() {
		t.Error("Expected marshalling to be enforced by default")
	}
	if cfg.Store.Type != StoreTypeMemory {
		t.Errorf("Expected default store 'memory', got %q", cfg.Store.Type)
	}
	if cfg.Marshal.Codec != "cbor" {
		t.Errorf("Expected default codec 'cbor', got %q", cfg.Marshal.Codec)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[logging]
level = "WARN"
format = "json"

[store]
type = "badger"

[store.badger]
path = "` + yamlSafePath(dir) + `/badger"
block_cache_size = "64MiB"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != StoreTypeBadger {
		t.Errorf("Expected store 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Store.Badger.BlockCacheSize != 64*bytesize.MiB {
		t.Errorf("Expected block cache 64MiB, got %v", cfg.Store.Badger.BlockCacheSize)
	}
}

func TestLoad_ByteSizeAndDurations(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
marshal:
  codec: json
  compression: zstd
  compression_threshold: 4KiB

session:
  expiration_interval: -1s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Marshal.CompressionThreshold != 4*bytesize.KiB {
		t.Errorf("Expected threshold 4KiB, got %v", cfg.Marshal.CompressionThreshold)
	}
	if cfg.Session.ExpirationInterval != -time.Second {
		t.Errorf("Expected expiration interval -1s, got %v", cfg.Session.ExpirationInterval)
	}
}

func TestLoad_InvalidCombination(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
session:
  transactional: true

store:
  type: s3
  s3:
    bucket: sessions
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected transactional sessions over S3 to be rejected")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.API.Admin.Username != "admin" {
		t.Errorf("Expected default admin username 'admin', got %q", cfg.API.Admin.Username)
	}
	if cfg.Session.ExpirationInterval != time.Minute {
		t.Errorf("Expected default expiration interval 1m, got %v", cfg.Session.ExpirationInterval)
	}
}

func TestDefaultConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if DefaultConfigExists() {
		t.Fatal("Expected no config in an empty config dir")
	}
	if err := SaveConfig(GetDefaultConfig(), GetDefaultConfigPath()); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if !DefaultConfigExists() {
		t.Fatal("Expected saved config to exist")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "dsess" {
		t.Errorf("Expected directory name 'dsess', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DSESS_LOGGING_LEVEL", "ERROR")
	t.Setenv("DSESS_API_PORT", "9090")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

api:
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("Expected port 9090 from env var, got %d", cfg.API.Port)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Store.Type = StoreTypeSQL
	cfg.Store.SQL.SQLite.Path = filepath.Join(t.TempDir(), "sessions.db")
	cfg.Marshal.CompressionThreshold = 2 * bytesize.KiB

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Store.Type != StoreTypeSQL {
		t.Errorf("Expected store 'sql', got %q", loaded.Store.Type)
	}
	if loaded.Marshal.CompressionThreshold != 2*bytesize.KiB {
		t.Errorf("Expected threshold 2KiB, got %v", loaded.Marshal.CompressionThreshold)
	}
	if loaded.Session.MaxInactiveInterval != 30*time.Minute {
		t.Errorf("Expected max inactive 30m, got %v", loaded.Session.MaxInactiveInterval)
	}
}
