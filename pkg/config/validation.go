package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittosession/pkg/marshal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the constraints that span sections.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
	}
	if cfg.Metrics.Enabled && !cfg.API.IsEnabled() {
		return fmt.Errorf("metrics are served by the API server: enable api or disable metrics")
	}
	if cfg.API.AuthEnabled() && cfg.API.Admin.PasswordHash == "" {
		return fmt.Errorf("api.admin.password_hash is required when api.jwt.secret is set")
	}

	if err := validateStore(&cfg.Store); err != nil {
		return fmt.Errorf("store.%s: %w", cfg.Store.Type, err)
	}

	if cfg.Session.Transactional && !storeIsTransactional(cfg.Store.Type) {
		return fmt.Errorf("session.transactional requires a transactional store, %q is not", cfg.Store.Type)
	}

	if cfg.Marshal.Codec == marshal.CodecLocal {
		if cfg.Store.Type != StoreTypeMemory {
			return fmt.Errorf("marshal.codec %q only works with the memory store", marshal.CodecLocal)
		}
		if cfg.Session.Transactional {
			return fmt.Errorf("marshal.codec %q cannot be used with session.transactional", marshal.CodecLocal)
		}
	}
	if _, err := marshal.ParseCompression(cfg.Marshal.Compression); err != nil {
		return fmt.Errorf("marshal.compression: %w", err)
	}

	return nil
}

// validateStore validates the block of the selected store.
func validateStore(cfg *StoreConfig) error {
	switch cfg.Type {
	case StoreTypeBadger:
		if cfg.Badger.Path == "" && !cfg.Badger.InMemory {
			return fmt.Errorf("path is required unless in_memory is set")
		}
		return nil
	case StoreTypePostgres:
		if err := validate.Struct(&cfg.Postgres); err != nil {
			return err
		}
		return cfg.Postgres.Validate()
	case StoreTypeSQL:
		return cfg.SQL.Validate()
	case StoreTypeS3:
		if err := validate.Struct(&cfg.S3); err != nil {
			return err
		}
		return cfg.S3.Validate()
	default:
		return nil
	}
}

// storeIsTransactional reports whether the store type supports Begin.
func storeIsTransactional(storeType string) bool {
	return storeType != StoreTypeS3
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s' (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
