package storetest

import (
	"testing"

	"github.com/marmos91/dittosession/pkg/store"
)

// BackendFactory creates a fresh Backend for each test. The factory receives
// *testing.T so it can use t.TempDir() for backends that need filesystem
// paths.
type BackendFactory func(t *testing.T) store.Backend

// RunConformanceSuite runs the full conformance test suite against the
// backends produced by factory.
//
// The suite covers:
//   - KeyOps: get, put and delete semantics including previous values
//   - Scan: prefix filtering and ordering
//   - Transactions: commit, rollback and isolation, or ErrNotSupported
//   - Tables: the typed attribute, name and metadata tables
func RunConformanceSuite(t *testing.T, factory BackendFactory) {
	t.Helper()

	t.Run("KeyOps", func(t *testing.T) {
		runKeyOpsTests(t, factory)
	})

	t.Run("Scan", func(t *testing.T) {
		runScanTests(t, factory)
	})

	t.Run("Transactions", func(t *testing.T) {
		runTransactionTests(t, factory)
	})

	t.Run("Tables", func(t *testing.T) {
		runTableTests(t, factory)
	})
}

// newBackend creates a backend and registers its Close with t.Cleanup.
func newBackend(t *testing.T, factory BackendFactory) store.Backend {
	t.Helper()

	backend := factory(t)
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return backend
}

func mustPut(t *testing.T, ops store.Ops, key, value string) {
	t.Helper()

	if _, err := ops.Put(t.Context(), key, []byte(value), store.ForceSynchronous); err != nil {
		t.Fatalf("Put(%q) failed: %v", key, err)
	}
}

func mustGet(t *testing.T, ops store.Ops, key string) []byte {
	t.Helper()

	value, err := ops.Get(t.Context(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value
}
