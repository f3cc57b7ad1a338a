package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittosession/internal/bytesize"
	"github.com/marmos91/dittosession/pkg/api"
	"github.com/marmos91/dittosession/pkg/marshal"
	"github.com/marmos91/dittosession/pkg/session"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyAPIDefaults(&cfg.API)
	applySessionDefaults(&cfg.Session)
	applyMarshalDefaults(&cfg.Marshal)
	applyStoreDefaults(&cfg.Store)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.MaxInactiveInterval == 0 {
		cfg.MaxInactiveInterval = 30 * time.Minute
	}
	if cfg.ExpirationInterval == 0 {
		cfg.ExpirationInterval = session.DefaultExpirationInterval
	}
	if cfg.Node == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Node = host
		}
	}
}

func applyMarshalDefaults(cfg *MarshalConfig) {
	if cfg.Codec == "" {
		cfg.Codec = marshal.CodecCBOR
	}
	if cfg.Compression == "" {
		cfg.Compression = string(marshal.CompressionNone)
	}
	if cfg.CompressionThreshold == 0 {
		cfg.CompressionThreshold = bytesize.KiB
	}
}

// applyStoreDefaults fills in the block of the selected store only.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = StoreTypeMemory
	}

	switch cfg.Type {
	case StoreTypeBadger:
		if cfg.Badger.Path == "" && !cfg.Badger.InMemory {
			cfg.Badger.Path = filepath.Join(getDataDir(), "badger")
		}
	case StoreTypePostgres:
		cfg.Postgres.ApplyDefaults()
	case StoreTypeSQL:
		cfg.SQL.ApplyDefaults()
	case StoreTypeS3:
		cfg.S3.ApplyDefaults()
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
