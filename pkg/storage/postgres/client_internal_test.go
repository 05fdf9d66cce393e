package postgres

import (
	"context"
	"testing"

	"cryptoboard/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// go test -v --run ^TestPrepareClosesPoolOnFailure$
func TestPrepareClosesPoolOnFailure(t *testing.T) {
	// Nothing listens on port 1; skipping the open-time ping lets the
	// failure surface during migration instead.
	dsn := "host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable connect_timeout=1"
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open without ping: %v", err)
	}
	client := &PostgresClient{DB: db}

	if err := client.prepare(config.PostgresConfig{MaxOpenConns: 2}); err == nil {
		t.Fatal("expected migration to fail against an unreachable server")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw DB: %v", err)
	}
	if err := sqlDB.PingContext(context.Background()); err == nil || err.Error() != "sql: database is closed" {
		t.Errorf("expected the pool to be closed, got %v", err)
	}
}
