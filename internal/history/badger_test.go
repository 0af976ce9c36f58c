package history

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBadgerStoreAppendAndReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	store, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatalf("failed to init badger store: %v", err)
	}

	set, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty history on fresh start")
	}

	if err := store.Append(context.Background(), []string{"L1", "L2"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen badger store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	set, err = reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(set) != 2 || !set.Has("L1") || !set.Has("L2") {
		t.Fatalf("unexpected history %v", set)
	}
}
