package postgres

import (
	"context"
	"fmt"

	"cryptoboard/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresClient struct {
	DB *gorm.DB
}

func NewClient(dsn string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}

// InitializeAndMigrateKVRecord connects to Postgres, optionally creates the DB, and runs AutoMigrate.
func InitializeAndMigrateKVRecord(cfg config.PostgresConfig, env string, createDB bool) (*PostgresClient, error) {
	if createDB {
		if err := CreateDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.prepare(cfg); err != nil {
		return nil, err
	}

	return client, nil
}

// prepare applies pool settings and migrates. The pool is closed if either step fails.
func (p *PostgresClient) prepare(cfg config.PostgresConfig) error {
	err := p.applyPool(cfg)
	if err == nil {
		if err = p.AutoMigrateKVRecord(); err != nil {
			err = fmt.Errorf("migration failed: %w", err)
		}
	}
	if err != nil {
		_ = p.Close()
		return err
	}
	return nil
}

func (p *PostgresClient) applyPool(cfg config.PostgresConfig) error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

func (p *PostgresClient) AutoMigrateKVRecord() error {
	if err := p.DB.AutoMigrate(&KVRecord{}); err != nil {
		return fmt.Errorf("auto-migrate kv table: %w", err)
	}
	return nil
}

func (p *PostgresClient) Ping(ctx context.Context) error {
	db, err := p.DB.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
