package storetest

import (
	"testing"

	"github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

func runTransactionTests(t *testing.T, factory BackendFactory) {
	probe := factory(t)
	transactional := probe.Transactional()
	_ = probe.Close()

	if !transactional {
		t.Run("BeginNotSupported", func(t *testing.T) { testBeginNotSupported(t, factory) })
		return
	}

	t.Run("CommitVisible", func(t *testing.T) { testCommitVisible(t, factory) })
	t.Run("Isolation", func(t *testing.T) { testIsolation(t, factory) })
	t.Run("ReadOwnWrites", func(t *testing.T) { testReadOwnWrites(t, factory) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, factory) })
	t.Run("RollbackAfterCommit", func(t *testing.T) { testRollbackAfterCommit(t, factory) })
}

func testBeginNotSupported(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	txn, err := backend.Begin(t.Context())
	if err == nil {
		_ = txn.Rollback(t.Context())
		t.Fatal("Begin() should fail on a non-transactional backend")
	}
	if !errors.IsNotSupportedError(err) {
		t.Errorf("Begin() error = %v, want NotSupported", err)
	}
}

func beginTxn(t *testing.T, backend store.Backend) store.Txn {
	t.Helper()

	txn, err := backend.Begin(t.Context())
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = txn.Rollback(t.Context())
	})
	return txn
}

func testCommitVisible(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	ctx := t.Context()

	mustPut(t, backend, "a:s1:1", "stale")

	txn := beginTxn(t, backend)
	mustPut(t, txn, "a:s1:0", "created")
	if _, err := txn.Delete(ctx, "a:s1:1", store.ForceSynchronous); err != nil {
		t.Fatalf("Delete() in transaction failed: %v", err)
	}
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	if got := string(mustGet(t, backend, "a:s1:0")); got != "created" {
		t.Errorf("Get() after commit = %q, want %q", got, "created")
	}
	if value := mustGet(t, backend, "a:s1:1"); value != nil {
		t.Errorf("deleted key after commit = %q, want nil", value)
	}
}

// testIsolation verifies uncommitted writes are invisible outside the
// transaction.
func testIsolation(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	txn := beginTxn(t, backend)
	mustPut(t, txn, "n:s1", "pending")

	if value := mustGet(t, backend, "n:s1"); value != nil {
		t.Errorf("uncommitted write visible outside transaction: %q", value)
	}

	if err := txn.Commit(t.Context()); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if got := string(mustGet(t, backend, "n:s1")); got != "pending" {
		t.Errorf("Get() after commit = %q, want %q", got, "pending")
	}
}

func testReadOwnWrites(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	ctx := t.Context()

	mustPut(t, backend, "a:s1:0", "v1")

	txn := beginTxn(t, backend)
	prev, err := txn.Put(ctx, "a:s1:0", []byte("v2"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if string(prev) != "v1" {
		t.Errorf("Put() previous = %q, want %q", prev, "v1")
	}
	if got := string(mustGet(t, txn, "a:s1:0")); got != "v2" {
		t.Errorf("Get() in transaction = %q, want %q", got, "v2")
	}

	prev, err = txn.Delete(ctx, "a:s1:0")
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if string(prev) != "v2" {
		t.Errorf("Delete() previous = %q, want %q", prev, "v2")
	}
	if value := mustGet(t, txn, "a:s1:0"); value != nil {
		t.Errorf("Get() after Delete in transaction = %q, want nil", value)
	}
}

func testRollback(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	ctx := t.Context()

	mustPut(t, backend, "a:s1:0", "original")

	txn, err := backend.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	mustPut(t, txn, "a:s1:0", "changed")
	mustPut(t, txn, "a:s1:1", "added")
	if err := txn.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	if got := string(mustGet(t, backend, "a:s1:0")); got != "original" {
		t.Errorf("Get() after rollback = %q, want %q", got, "original")
	}
	if value := mustGet(t, backend, "a:s1:1"); value != nil {
		t.Errorf("rolled back key = %q, want nil", value)
	}
}

func testRollbackAfterCommit(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	ctx := t.Context()

	txn, err := backend.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	mustPut(t, txn, "m:s1", "meta")
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if err := txn.Rollback(ctx); err != nil {
		t.Errorf("Rollback() after Commit should be a no-op, got %v", err)
	}
	if got := string(mustGet(t, backend, "m:s1")); got != "meta" {
		t.Errorf("Get() = %q, want %q", got, "meta")
	}
}
