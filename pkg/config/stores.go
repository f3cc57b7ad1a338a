package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/marshal"
	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/badger"
	"github.com/marmos91/dittosession/pkg/store/memory"
	"github.com/marmos91/dittosession/pkg/store/postgres"
	"github.com/marmos91/dittosession/pkg/store/s3"
	"github.com/marmos91/dittosession/pkg/store/sqlstore"
)

// CreateBackend opens the configured store.
func CreateBackend(ctx context.Context, cfg StoreConfig) (store.Backend, error) {
	logger.Debug("Creating session store", logger.KeyStoreType, cfg.Type)

	switch cfg.Type {
	case StoreTypeMemory, "":
		return memory.New(), nil
	case StoreTypeBadger:
		return createBadgerBackend(ctx, cfg.Badger)
	case StoreTypePostgres:
		return createPostgresBackend(ctx, cfg.Postgres)
	case StoreTypeSQL:
		return createSQLBackend(ctx, cfg.SQL)
	case StoreTypeS3:
		return createS3Backend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

func createBadgerBackend(ctx context.Context, cfg BadgerConfig) (store.Backend, error) {
	s, err := badger.New(ctx, badger.Config{
		Path:           cfg.Path,
		InMemory:       cfg.InMemory,
		SyncWrites:     cfg.SyncWrites,
		BlockCacheSize: int64(cfg.BlockCacheSize),
		IndexCacheSize: int64(cfg.IndexCacheSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}
	return s, nil
}

func createPostgresBackend(ctx context.Context, cfg postgres.Config) (store.Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	s, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres store: %w", err)
	}
	return s, nil
}

func createSQLBackend(ctx context.Context, cfg sqlstore.Config) (store.Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sql config: %w", err)
	}
	s, err := sqlstore.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sql store: %w", err)
	}
	return s, nil
}

func createS3Backend(ctx context.Context, cfg s3.Config) (store.Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}
	s, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 store: %w", err)
	}
	return s, nil
}

// CreateMarshaller builds the configured marshaller. registry may be nil.
func CreateMarshaller(cfg MarshalConfig, registry *marshal.Registry) (marshal.Marshaller, error) {
	if cfg.Codec == marshal.CodecLocal {
		return marshal.NewLocal(), nil
	}

	codec, err := marshal.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	compression, err := marshal.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	opts := []marshal.Option{
		marshal.WithCompression(compression, cfg.CompressionThreshold.Int()),
	}
	if registry != nil {
		opts = append(opts, marshal.WithRegistry(registry))
	}

	m, err := marshal.New(codec, opts...)
	if err != nil {
		return nil, err
	}

	logger.Debug("Created marshaller",
		logger.KeyCodec, codec.Name(),
		logger.KeyCompression, string(compression))
	return m, nil
}
