package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/config"
	"github.com/marmos91/dittosession/pkg/store/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply pending schema migrations to the configured PostgreSQL store.

Other stores create their schema when opened and need no migration.
Run this after upgrading dsess when the PostgreSQL store has
auto_migrate disabled.

Examples:
  # Run migrations with default config
  dsess migrate

  # Run migrations with custom config
  dsess migrate --config /etc/dsess/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	if cfg.Store.Type != config.StoreTypePostgres {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Store type %s has no migrations\n", cfg.Store.Type)
		return nil
	}

	pgCfg := cfg.Store.Postgres
	ctx := context.Background()
	logger.Info("Running database migrations", logger.KeyStoreType, cfg.Store.Type)
	if err := postgres.RunMigrations(ctx, &pgCfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := postgres.MigrationVersion(ctx, &pgCfg)
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Migrations completed successfully (schema version: %d)\n", version)
	return nil
}
