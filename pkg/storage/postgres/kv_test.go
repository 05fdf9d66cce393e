package postgres_test

import (
	"context"
	"os"
	"testing"

	"cryptoboard/pkg/storage/postgres"
)

// testClient connects to the database named by CRYPTOBOARD_TEST_POSTGRES_DSN,
// skipping when no database is available.
func testClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()
	dsn := os.Getenv("CRYPTOBOARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CRYPTOBOARD_TEST_POSTGRES_DSN not set")
	}

	client, err := postgres.NewClient(dsn)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.AutoMigrateKVRecord(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return client
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=1"

	_, err := postgres.NewClient(invalidDSN)
	if err == nil {
		t.Fatal("expected error for invalid DSN, got nil")
	}
}

// go test -v --run ^TestKVCRUD$
func TestKVCRUD(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	const key = "test_selected_coins"

	if err := client.Delete(ctx, key); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if _, ok, err := client.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	// Create
	if err := client.Set(ctx, key, `["bitcoin"]`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Update via upsert
	if err := client.Set(ctx, key, `["bitcoin","ethereum"]`); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Read
	got, ok, err := client.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got != `["bitcoin","ethereum"]` {
		t.Errorf("unexpected value: %s", got)
	}

	// Delete
	if err := client.Delete(ctx, key); err != nil {
		t.Errorf("delete failed: %v", err)
	}
	if _, ok, _ := client.Get(ctx, key); ok {
		t.Error("expected key to be gone after delete")
	}
}

// go test -v --run ^TestPing$
func TestPing(t *testing.T) {
	client := testClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy DB connection: %v", err)
	}
}
