package storetest

import (
	"maps"
	"testing"
	"time"

	"github.com/marmos91/dittosession/pkg/store"
)

func runTableTests(t *testing.T, factory BackendFactory) {
	t.Run("AttributeCache", func(t *testing.T) { testAttributeCache(t, factory) })
	t.Run("NameTable", func(t *testing.T) { testNameTable(t, factory) })
	t.Run("MetadataTable", func(t *testing.T) { testMetadataTable(t, factory) })
}

func testAttributeCache(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	cache := store.NewAttributeCache(backend)
	ctx := t.Context()
	key := store.AttributeKey{SessionID: "s1", AttributeID: 7}

	prev, err := cache.Put(ctx, key, []byte("one"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if prev != nil {
		t.Errorf("Put() previous = %q, want nil", prev)
	}

	prev, err = cache.Put(ctx, key, []byte("two"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if string(prev) != "one" {
		t.Errorf("Put() previous = %q, want %q", prev, "one")
	}

	value, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(value) != "two" {
		t.Errorf("Get() = %q, want %q", value, "two")
	}

	prev, err = cache.Remove(ctx, key)
	if err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if string(prev) != "two" {
		t.Errorf("Remove() previous = %q, want %q", prev, "two")
	}

	value, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if value != nil {
		t.Errorf("Get() after Remove = %q, want nil", value)
	}
}

func testNameTable(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	table := store.NewNameTable(backend)
	ctx := t.Context()

	record, err := table.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if record != nil {
		t.Fatalf("Load() of unknown session = %+v, want nil", record)
	}

	want := &store.NameRecord{
		Sequence: 4,
		Names:    map[string]int32{"cart": 0, "user": 4},
	}
	if err := table.Store(ctx, "s1", want); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	got, err := table.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got == nil || got.Sequence != want.Sequence || !maps.Equal(got.Names, want.Names) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := table.Remove(ctx, "s1"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	got, err = table.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != nil {
		t.Errorf("Load() after Remove = %+v, want nil", got)
	}
}

func testMetadataTable(t *testing.T, factory BackendFactory) {
	backend := newBackend(t, factory)
	table := store.NewMetadataTable(backend)
	ctx := t.Context()

	_, found, err := table.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if found {
		t.Fatal("Load() of unknown session should report not found")
	}

	created := time.Unix(1700000000, 0)
	want := store.Metadata{
		CreationTime:        created,
		LastAccessedTime:    created.Add(90 * time.Second),
		MaxInactiveInterval: 30 * time.Minute,
	}
	if err := table.Store(ctx, "s1", want); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	got, found, err := table.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !found {
		t.Fatal("Load() after Store should report found")
	}
	if !got.CreationTime.Equal(want.CreationTime) ||
		!got.LastAccessedTime.Equal(want.LastAccessedTime) ||
		got.MaxInactiveInterval != want.MaxInactiveInterval {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := table.Remove(ctx, "s1"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, found, _ := table.Load(ctx, "s1"); found {
		t.Error("Load() after Remove should report not found")
	}
}
