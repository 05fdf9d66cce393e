package postgres

import "time"

// KVRecord is one durable key-value pair.
type KVRecord struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (KVRecord) TableName() string {
	return "kv_record"
}
