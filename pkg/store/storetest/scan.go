package storetest

import (
	"fmt"
	"slices"
	"testing"
)

func runScanTests(t *testing.T, factory BackendFactory) {
	t.Run("PrefixOrdered", func(t *testing.T) { testScanPrefixOrdered(t, factory) })
	t.Run("Empty", func(t *testing.T) { testScanEmpty(t, factory) })
	t.Run("StopsOnError", func(t *testing.T) { testScanStopsOnError(t, factory) })
}

// testScanPrefixOrdered verifies that Scan only visits matching keys, in
// key order, with their values.
func testScanPrefixOrdered(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	mustPut(t, backend, "m:s2", "two")
	mustPut(t, backend, "m:s1", "one")
	mustPut(t, backend, "m:s3", "three")
	mustPut(t, backend, "n:s1", "names")
	mustPut(t, backend, "a:s1:0", "attr")

	var keys, values []string
	err := backend.Scan(t.Context(), "m:", func(key string, value []byte) error {
		keys = append(keys, key)
		values = append(values, string(value))
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if want := []string{"m:s1", "m:s2", "m:s3"}; !slices.Equal(keys, want) {
		t.Errorf("Scan() keys = %v, want %v", keys, want)
	}
	if want := []string{"one", "two", "three"}; !slices.Equal(values, want) {
		t.Errorf("Scan() values = %v, want %v", values, want)
	}
}

func testScanEmpty(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	mustPut(t, backend, "n:s1", "names")

	calls := 0
	err := backend.Scan(t.Context(), "m:", func(string, []byte) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("Scan() visited %d keys, want 0", calls)
	}
}

func testScanStopsOnError(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)

	for i := range 5 {
		mustPut(t, backend, fmt.Sprintf("a:s1:%d", i), "v")
	}

	stop := fmt.Errorf("stop")
	calls := 0
	err := backend.Scan(t.Context(), "a:s1:", func(string, []byte) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("Scan() error = %v, want %v", err, stop)
	}
	if calls != 2 {
		t.Errorf("Scan() visited %d keys after error, want 2", calls)
	}
}
