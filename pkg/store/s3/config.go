package s3

import (
	"fmt"
	"time"
)

// Config configures the S3 session backend.
type Config struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket" validate:"required"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`

	// KeyPrefix is prepended to every object key, e.g. "sessions/".
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// Retry of transient errors and lost conditional-write races.
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`               // Default: 5
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`       // Default: 50ms
	MaxBackoff        time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`               // Default: 2s
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"` // Default: 2
}

// ApplyDefaults sets default values for unspecified configuration fields.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 50 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1")
	}
	return nil
}

// calculateBackoff returns the wait before retry number attempt.
func (c *Config) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}
	return time.Duration(backoff)
}
