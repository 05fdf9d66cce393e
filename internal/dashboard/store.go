package dashboard

import (
	"context"
	"fmt"

	"cryptoboard/config"
	"cryptoboard/pkg/storage/memory"
	"cryptoboard/pkg/storage/postgres"
	"cryptoboard/pkg/storage/redis"
	"cryptoboard/pkg/storage/sqlite"
)

// Store is the durable key-value store behind the followed set.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore connects to the store selected by storage.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.NewStore(), nil

	case "sqlite":
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil

	case "postgres":
		c, err := postgres.InitializeAndMigrateKVRecord(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "redis":
		r := cfg.Storage.Redis
		s, err := redis.Connect(ctx, r.Addr, r.Password, r.DB)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
