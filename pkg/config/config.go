package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittosession/internal/bytesize"
	"github.com/marmos91/dittosession/pkg/api"
	"github.com/marmos91/dittosession/pkg/store/postgres"
	"github.com/marmos91/dittosession/pkg/store/s3"
	"github.com/marmos91/dittosession/pkg/store/sqlstore"
)

// Config represents the dsess configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DSESS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains admin API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Session controls the behavior of the session manager
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Marshal selects how attribute values are stored
	Marshal MarshalConfig `mapstructure:"marshal" yaml:"marshal"`

	// Store selects and configures the backing store
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures Prometheus metrics. Metrics are served on the
// API server under /metrics. When Enabled is false no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// SessionConfig controls the session manager.
type SessionConfig struct {
	// Transactional runs each request inside a backend transaction.
	// Requires a transactional store.
	Transactional bool `mapstructure:"transactional" yaml:"transactional"`

	// Marshalling rejects attribute values the marshaller cannot write.
	// Default: true
	Marshalling *bool `mapstructure:"marshalling" yaml:"marshalling"`

	// MaxInactiveInterval is the expiration timeout of new sessions.
	// Zero means sessions never expire.
	// Default: 30m
	MaxInactiveInterval time.Duration `mapstructure:"max_inactive_interval" validate:"gte=0" yaml:"max_inactive_interval"`

	// ExpirationInterval is the period of the expired session purge.
	// Negative disables the purge loop.
	// Default: 1m
	ExpirationInterval time.Duration `mapstructure:"expiration_interval" yaml:"expiration_interval"`

	// Node names this process in logs and traces.
	// Default: hostname
	Node string `mapstructure:"node" yaml:"node"`
}

// IsMarshalling returns whether marshalling is enforced.
// Defaults to true if not explicitly set.
func (c *SessionConfig) IsMarshalling() bool {
	if c.Marshalling == nil {
		return true
	}
	return *c.Marshalling
}

// MarshalConfig selects the attribute marshaller.
type MarshalConfig struct {
	// Codec is one of cbor, json, xdr or local. The local marshaller keeps
	// values in process memory and only works with the memory store.
	// Default: cbor
	Codec string `mapstructure:"codec" validate:"required,oneof=cbor json xdr local" yaml:"codec"`

	// Compression of stored payloads: none, zstd or lz4.
	// Default: none
	Compression string `mapstructure:"compression" validate:"required,oneof=none zstd lz4" yaml:"compression"`

	// CompressionThreshold is the smallest payload that gets compressed.
	// Supports human-readable formats: "1KiB", "512B"
	// Default: 1KiB
	CompressionThreshold bytesize.ByteSize `mapstructure:"compression_threshold" yaml:"compression_threshold"`
}

// Store types accepted in StoreConfig.Type.
const (
	StoreTypeMemory   = "memory"
	StoreTypeBadger   = "badger"
	StoreTypePostgres = "postgres"
	StoreTypeSQL      = "sql"
	StoreTypeS3       = "s3"
)

// StoreConfig selects the backing store. Only the block of the selected
// type is validated.
type StoreConfig struct {
	// Type is one of memory, badger, postgres, sql, s3.
	// Default: memory
	Type string `mapstructure:"type" validate:"required,oneof=memory badger postgres sql s3" yaml:"type"`

	Badger   BadgerConfig    `mapstructure:"badger" validate:"-" yaml:"badger"`
	Postgres postgres.Config `mapstructure:"postgres" validate:"-" yaml:"postgres"`
	SQL      sqlstore.Config `mapstructure:"sql" validate:"-" yaml:"sql"`
	S3       s3.Config       `mapstructure:"s3" validate:"-" yaml:"s3"`
}

// BadgerConfig configures the BadgerDB store.
type BadgerConfig struct {
	// Path is the database directory.
	// Default: $XDG_DATA_HOME/dsess/badger
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory keeps the database in memory only.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites makes every commit durable, not only forced writes.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`

	// BlockCacheSize and IndexCacheSize size Badger's caches.
	// Zero keeps Badger's defaults.
	BlockCacheSize bytesize.ByteSize `mapstructure:"block_cache_size" yaml:"block_cache_size,omitempty"`
	IndexCacheSize bytesize.ByteSize `mapstructure:"index_cache_size" yaml:"index_cache_size,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DSESS_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file
// does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dsess config init\n\n"+
				"Or specify a custom config file:\n"+
				"  dsess <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  dsess config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Config files may hold secrets and password hashes.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Example: DSESS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DSESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, so
// config files can use sizes like "1KiB" or "64MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/dsess, ~/.config/dsess, or the
// current directory when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dsess")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dsess")
}

// getDataDir returns $XDG_DATA_HOME/dsess or ~/.local/share/dsess.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dsess")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "dsess")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
