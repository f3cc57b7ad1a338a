package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/internal/telemetry"
	"github.com/marmos91/dittosession/pkg/api"
	"github.com/marmos91/dittosession/pkg/config"
	"github.com/marmos91/dittosession/pkg/metrics"
	"github.com/spf13/cobra"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/dittosession/pkg/metrics/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session store with its admin API",
	Long: `Open the configured session store, start the expiration loop and serve
the admin API until interrupted.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/dsess/config.yaml.

Examples:
  # Serve with the default config
  dsess serve

  # Serve with a custom config file
  dsess serve --config /etc/dsess/config.yaml

  # Override settings from the environment
  DSESS_LOGGING_LEVEL=DEBUG DSESS_STORE_TYPE=badger dsess serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dsess",
		ServiceVersion: Version,
		Node:           cfg.Session.Node,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is cancelled by then; give the exporter its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dsess",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		Node:           cfg.Session.Node,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Metrics must be initialized before the store so it gets instrumented.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		metrics.Disable()
	}

	manager, cleanup, err := openManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("Session store opened",
		logger.KeyStoreType, manager.Backend().Name(),
		logger.KeyCodec, cfg.Marshal.Codec,
		"transactional", cfg.Session.Transactional,
		logger.KeyNode, manager.Node())

	manager.Start(ctx)
	defer manager.Stop()

	var apiServer *api.Server
	if cfg.API.IsEnabled() {
		apiServer, err = api.NewServer(cfg.API, manager)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
	} else {
		logger.Info("API server disabled")
	}

	serverDone := make(chan error, 1)
	go func() {
		if apiServer == nil {
			<-ctx.Done()
			serverDone <- nil
			return
		}
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped")
	}
	return nil
}
