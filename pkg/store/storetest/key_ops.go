package storetest

import (
	"testing"

	"github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

func runKeyOpsTests(t *testing.T, factory BackendFactory) {
	t.Run("GetAbsent", func(t *testing.T) { testGetAbsent(t, factory) })
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, factory) })
	t.Run("PutReturnsPrevious", func(t *testing.T) { testPutReturnsPrevious(t, factory) })
	t.Run("DeleteReturnsPrevious", func(t *testing.T) { testDeleteReturnsPrevious(t, factory) })
	t.Run("DeleteAbsent", func(t *testing.T) { testDeleteAbsent(t, factory) })
	t.Run("EmptyValueRejected", func(t *testing.T) { testEmptyValueRejected(t, factory) })
	t.Run("Healthcheck", func(t *testing.T) { testHealthcheck(t, factory) })
	t.Run("Name", func(t *testing.T) { testName(t, factory) })
}

// testGetAbsent verifies that a missing key reads as nil without error.
func testGetAbsent(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	if value := mustGet(t, backend, "a:missing:0"); value != nil {
		t.Errorf("Get() = %q, want nil", value)
	}
}

func testPutGet(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	mustPut(t, backend, "a:s1:0", "value-0")
	mustPut(t, backend, "a:s1:1", "value-1")

	if got := string(mustGet(t, backend, "a:s1:0")); got != "value-0" {
		t.Errorf("Get(a:s1:0) = %q, want %q", got, "value-0")
	}
	if got := string(mustGet(t, backend, "a:s1:1")); got != "value-1" {
		t.Errorf("Get(a:s1:1) = %q, want %q", got, "value-1")
	}
}

func testPutReturnsPrevious(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	ctx := t.Context()

	prev, err := backend.Put(ctx, "n:s1", []byte("first"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if prev != nil {
		t.Errorf("first Put() previous = %q, want nil", prev)
	}

	prev, err = backend.Put(ctx, "n:s1", []byte("second"), store.ForceSynchronous)
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if string(prev) != "first" {
		t.Errorf("second Put() previous = %q, want %q", prev, "first")
	}

	if got := string(mustGet(t, backend, "n:s1")); got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
}

func testDeleteReturnsPrevious(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	mustPut(t, backend, "m:s1", "meta")

	prev, err := backend.Delete(t.Context(), "m:s1", store.ForceSynchronous)
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if string(prev) != "meta" {
		t.Errorf("Delete() previous = %q, want %q", prev, "meta")
	}
	if value := mustGet(t, backend, "m:s1"); value != nil {
		t.Errorf("Get() after Delete = %q, want nil", value)
	}
}

func testDeleteAbsent(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	prev, err := backend.Delete(t.Context(), "m:absent")
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if prev != nil {
		t.Errorf("Delete() previous = %q, want nil", prev)
	}
}

func testEmptyValueRejected(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	_, err := backend.Put(t.Context(), "a:s1:0", nil)
	if err == nil {
		t.Fatal("Put(nil) should fail")
	}
	if errors.CodeOf(err) != errors.ErrInvalidArgument {
		t.Errorf("Put(nil) error code = %v, want InvalidArgument", errors.CodeOf(err))
	}
}

func testHealthcheck(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	if err := backend.Healthcheck(t.Context()); err != nil {
		t.Errorf("Healthcheck() failed: %v", err)
	}
}

func testName(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	if backend.Name() == "" {
		t.Error("Name() should not be empty")
	}
}
