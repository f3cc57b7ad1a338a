package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.JWT.Secret = "short"
	cfg.API.Admin.PasswordHash = "$2a$10$hash"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for short JWT secret")
	}
}

func TestValidate_SecretWithoutPasswordHash(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.JWT.Secret = strings.Repeat("s", 32)

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "password_hash") {
		t.Fatalf("Expected password_hash error, got: %v", err)
	}
}

func TestValidate_Marshal(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown codec", func(c *Config) { c.Marshal.Codec = "gob" }, "oneof"},
		{"unknown compression", func(c *Config) { c.Marshal.Compression = "snappy" }, "oneof"},
		{"local over badger", func(c *Config) {
			c.Marshal.Codec = "local"
			c.Store.Type = StoreTypeBadger
			c.Store.Badger.InMemory = true
		}, "memory store"},
		{"local transactional", func(c *Config) {
			c.Marshal.Codec = "local"
			c.Session.Transactional = true
		}, "transactional"},
		{"local over memory", func(c *Config) { c.Marshal.Codec = "local" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_Store(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr bool
	}{
		{"unknown type", StoreConfig{Type: "redis"}, true},
		{"badger without path", StoreConfig{Type: StoreTypeBadger}, true},
		{"badger in memory", StoreConfig{Type: StoreTypeBadger, Badger: BadgerConfig{InMemory: true}}, false},
		{"postgres missing host", StoreConfig{Type: StoreTypePostgres}, true},
		{"s3 missing bucket", StoreConfig{Type: StoreTypeS3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Store = tt.store
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_TransactionalNeedsTransactionalStore(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Session.Transactional = true
	cfg.Store = StoreConfig{Type: StoreTypeS3}
	cfg.Store.S3.Bucket = "sessions"
	cfg.Store.S3.ApplyDefaults()

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "transactional") {
		t.Fatalf("Expected transactional store error, got: %v", err)
	}

	cfg.Store = StoreConfig{Type: StoreTypeMemory}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected transactional memory store to be valid, got: %v", err)
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for telemetry without endpoint")
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate above 1")
	}
}

func TestValidate_MetricsNeedAPI(t *testing.T) {
	cfg := GetDefaultConfig()
	disabled := false
	cfg.Metrics.Enabled = true
	cfg.API.Enabled = &disabled

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for metrics without API server")
	}
}
