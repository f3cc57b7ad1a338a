package config

import (
	"testing"
	"time"

	"github.com/marmos91/dittosession/internal/bytesize"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.API.ReadTimeout)
	}
	if cfg.API.JWT.Issuer != "dsess" {
		t.Errorf("Expected default issuer 'dsess', got %q", cfg.API.JWT.Issuer)
	}
	if cfg.API.AuthEnabled() {
		t.Error("Expected authentication to be off without a secret")
	}
}

func TestApplyDefaults_SessionAndMarshal(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Session.MaxInactiveInterval != 30*time.Minute {
		t.Errorf("Expected default max inactive 30m, got %v", cfg.Session.MaxInactiveInterval)
	}
	if cfg.Marshal.Compression != "none" {
		t.Errorf("Expected default compression 'none', got %q", cfg.Marshal.Compression)
	}
	if cfg.Marshal.CompressionThreshold != bytesize.KiB {
		t.Errorf("Expected default threshold 1KiB, got %v", cfg.Marshal.CompressionThreshold)
	}
}

func TestApplyDefaults_SelectedStoreOnly(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Type: StoreTypePostgres}}
	ApplyDefaults(cfg)

	if cfg.Store.Postgres.Port != 5432 {
		t.Errorf("Expected postgres port 5432, got %d", cfg.Store.Postgres.Port)
	}
	if cfg.Store.S3.Region != "" {
		t.Errorf("Expected unselected s3 block untouched, got region %q", cfg.Store.S3.Region)
	}

	cfg = &Config{Store: StoreConfig{Type: StoreTypeBadger}}
	ApplyDefaults(cfg)
	if cfg.Store.Badger.Path == "" {
		t.Error("Expected a default badger path")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: "stderr",
		},
		ShutdownTimeout: 5 * time.Second,
		Session: SessionConfig{
			MaxInactiveInterval: time.Hour,
			ExpirationInterval:  -1,
			Node:                "node-7",
		},
		Marshal: MarshalConfig{Codec: "xdr"},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Session.MaxInactiveInterval != time.Hour {
		t.Errorf("Expected max inactive 1h, got %v", cfg.Session.MaxInactiveInterval)
	}
	if cfg.Session.ExpirationInterval != -1 {
		t.Errorf("Expected disabled expiration loop, got %v", cfg.Session.ExpirationInterval)
	}
	if cfg.Session.Node != "node-7" {
		t.Errorf("Expected node 'node-7', got %q", cfg.Session.Node)
	}
	if cfg.Marshal.Codec != "xdr" {
		t.Errorf("Expected codec 'xdr', got %q", cfg.Marshal.Codec)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid, got: %v", err)
	}
}
