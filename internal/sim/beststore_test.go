package sim

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "best.json")
	store := NewFileBestStore(path)

	best, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error loading missing file: %v", err)
	}
	if best != 0 {
		t.Fatalf("expected 0 for missing file, got %d", best)
	}

	if err := store.Save(42); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	best, err = store.Load()
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if best != 42 {
		t.Fatalf("expected 42, got %d", best)
	}
}

func TestFileBestStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := NewFileBestStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}
