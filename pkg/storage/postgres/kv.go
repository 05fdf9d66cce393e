package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get returns the value stored under key; ok is false when the key is absent.
func (p *PostgresClient) Get(ctx context.Context, key string) (string, bool, error) {
	var record KVRecord
	err := p.DB.WithContext(ctx).
		Where("key = ?", key).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return record.Value, true, nil
}

// Set upserts key in a single statement, so concurrent writers never see a
// missing row between delete and insert.
func (p *PostgresClient) Set(ctx context.Context, key, value string) error {
	record := &KVRecord{Key: key, Value: value, UpdatedAt: time.Now()}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(record)

	if tx.Error != nil {
		return fmt.Errorf("set %q: %w", key, tx.Error)
	}
	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (p *PostgresClient) Delete(ctx context.Context, key string) error {
	return p.DB.WithContext(ctx).
		Where("key = ?", key).
		Delete(&KVRecord{}).Error
}
