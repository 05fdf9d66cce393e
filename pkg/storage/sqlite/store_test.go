package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// go test -v --run ^TestStoreRoundTrip$
func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "cryptoboard.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, ok, err := store.Get(ctx, "selected_coins"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "selected_coins", `["bitcoin"]`); err != nil {
		t.Fatalf("first set failed: %v", err)
	}
	if err := store.Set(ctx, "selected_coins", `["bitcoin","ethereum"]`); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// A new handle on the same file sees the last write.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "selected_coins")
	if err != nil || !ok {
		t.Fatalf("get after reopen failed: ok=%v err=%v", ok, err)
	}
	if got != `["bitcoin","ethereum"]` {
		t.Errorf("unexpected value after reopen: %s", got)
	}

	if err := reopened.Ping(ctx); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
