package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittosession/pkg/marshal"
	"github.com/marmos91/dittosession/pkg/store/sqlstore"
)

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name          string
		cfg           func(t *testing.T) StoreConfig
		wantName      string
		transactional bool
	}{
		{
			name:          "memory",
			cfg:           func(*testing.T) StoreConfig { return StoreConfig{Type: StoreTypeMemory} },
			wantName:      "memory",
			transactional: true,
		},
		{
			name: "badger in memory",
			cfg: func(*testing.T) StoreConfig {
				return StoreConfig{Type: StoreTypeBadger, Badger: BadgerConfig{InMemory: true}}
			},
			wantName:      "badger",
			transactional: true,
		},
		{
			name: "sqlite",
			cfg: func(t *testing.T) StoreConfig {
				return StoreConfig{Type: StoreTypeSQL, SQL: sqlstore.Config{
					Dialect: sqlstore.DialectSQLite,
					SQLite:  sqlstore.SQLiteConfig{Path: filepath.Join(t.TempDir(), "sessions.db")},
				}}
			},
			wantName:      "sql/sqlite",
			transactional: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := CreateBackend(context.Background(), tt.cfg(t))
			if err != nil {
				t.Fatalf("CreateBackend failed: %v", err)
			}
			defer func() { _ = backend.Close() }()

			if backend.Name() != tt.wantName {
				t.Errorf("Expected backend %q, got %q", tt.wantName, backend.Name())
			}
			if backend.Transactional() != tt.transactional {
				t.Errorf("Expected transactional=%v", tt.transactional)
			}
			if err := backend.Healthcheck(context.Background()); err != nil {
				t.Errorf("Healthcheck failed: %v", err)
			}
		})
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	if _, err := CreateBackend(context.Background(), StoreConfig{Type: "redis"}); err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if _, err := CreateBackend(context.Background(), StoreConfig{Type: StoreTypeS3}); err == nil {
		t.Fatal("Expected error for s3 store without bucket")
	}
}

func TestCreateMarshaller(t *testing.T) {
	local, err := CreateMarshaller(MarshalConfig{Codec: marshal.CodecLocal}, nil)
	if err != nil {
		t.Fatalf("CreateMarshaller(local) failed: %v", err)
	}
	if _, ok := local.(*marshal.LocalMarshaller); !ok {
		t.Errorf("Expected *marshal.LocalMarshaller, got %T", local)
	}

	registry := marshal.NewRegistry()
	m, err := CreateMarshaller(MarshalConfig{Codec: "json", Compression: "zstd", CompressionThreshold: 16}, registry)
	if err != nil {
		t.Fatalf("CreateMarshaller(json) failed: %v", err)
	}
	typed, ok := m.(*marshal.TypedMarshaller)
	if !ok {
		t.Fatalf("Expected *marshal.TypedMarshaller, got %T", m)
	}
	if typed.Registry() != registry {
		t.Error("Expected the given registry to be used")
	}

	data, err := m.Write("a value long enough to be compressed by zstd")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	value, err := m.Read(data)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if value != "a value long enough to be compressed by zstd" {
		t.Errorf("Unexpected round trip value %v", value)
	}

	if _, err := CreateMarshaller(MarshalConfig{Codec: "gob"}, nil); err == nil {
		t.Error("Expected error for unknown codec")
	}
}
