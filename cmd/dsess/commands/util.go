package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/attributes"
	"github.com/marmos91/dittosession/pkg/config"
	"github.com/marmos91/dittosession/pkg/marshal"
	"github.com/marmos91/dittosession/pkg/metrics"
	promMetrics "github.com/marmos91/dittosession/pkg/metrics/prometheus"
	"github.com/marmos91/dittosession/pkg/session"
	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/badger"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// openManager opens the configured store and builds a session manager on
// it. Closing the manager does not close the backend; the returned cleanup
// does both.
func openManager(ctx context.Context, cfg *config.Config) (*session.Manager, func(), error) {
	backend, err := config.CreateBackend(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	if metrics.IsEnabled() {
		if bs, ok := backend.(*badger.Store); ok {
			if err := promMetrics.RegisterBadgerCollector(bs); err != nil {
				logger.Warn("Failed to register badger cache metrics", logger.KeyError, err)
			}
		}
		backend = store.Instrument(backend, metrics.NewStoreMetrics())
	}

	marshaller, err := config.CreateMarshaller(cfg.Marshal, marshal.NewRegistry())
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	manager, err := session.NewManager(session.Config{
		Backend:    backend,
		Marshaller: marshaller,
		Properties: attributes.Properties{
			Transactional: cfg.Session.Transactional,
			Marshalling:   cfg.Session.IsMarshalling(),
		},
		MaxInactiveInterval: cfg.Session.MaxInactiveInterval,
		ExpirationInterval:  cfg.Session.ExpirationInterval,
		Node:                cfg.Session.Node,
		Metrics:             metrics.NewSessionMetrics(),
		AttributeMetrics:    metrics.NewAttributeMetrics(),
	})
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := manager.Close(); err != nil {
			logger.Warn("Session manager close error", logger.KeyError, err)
		}
		if err := backend.Close(); err != nil {
			logger.Warn("Session store close error", logger.KeyError, err)
		}
	}
	return manager, cleanup, nil
}

// loadForAdmin loads configuration for one-shot commands that open the store.
func loadForAdmin() (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	metrics.Disable()
	return cfg, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
