package models

import "time"

// CartSnapshot is one encoded cart envelope keyed by the cart storage key.
type CartSnapshot struct {
	Key       string     `gorm:"column:snapshot_key;primaryKey"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// All lists every model managed by the schema, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&CartSnapshot{},
	}
}
