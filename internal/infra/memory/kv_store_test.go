package memory

import (
	"context"
	"testing"
)

func TestKVStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	if _, ok, _ := store.Get(ctx, "progress:u1:timer"); ok {
		t.Fatalf("expected missing key")
	}

	value := []byte(`{"testId":1}`)
	if err := store.Set(ctx, "progress:u1:timer", value); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'x'

	got, ok, err := store.Get(ctx, "progress:u1:timer")
	if err != nil || !ok {
		t.Fatalf("expected key present, ok=%v err=%v", ok, err)
	}
	if string(got) != `{"testId":1}` {
		t.Fatalf("stored value must not alias caller buffer, got %s", got)
	}

	if err := store.Remove(ctx, "progress:u1:timer"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "progress:u1:timer"); ok {
		t.Fatalf("expected key removed")
	}
}
