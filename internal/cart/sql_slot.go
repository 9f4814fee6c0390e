package cart

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartdot/storefront-backend/pkg/db/models"
)

// SQLSlot persists snapshots in the cart_snapshots table.
type SQLSlot struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLSlot builds a slot on top of a gorm connection.
func NewSQLSlot(db *gorm.DB) (*SQLSlot, error) {
	if db == nil {
		return nil, errors.New("gorm db required")
	}
	return &SQLSlot{db: db, now: time.Now}, nil
}

func (s *SQLSlot) Get(ctx context.Context, key string) (string, bool, error) {
	var snapshot models.CartSnapshot
	err := s.db.WithContext(ctx).
		Where("snapshot_key = ?", key).
		Take(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if snapshot.ExpiresAt != nil && s.now().After(*snapshot.ExpiresAt) {
		if err := s.Delete(ctx, key); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return snapshot.Value, true, nil
}

func (s *SQLSlot) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	snapshot := models.CartSnapshot{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	if ttl > 0 {
		expires := s.now().Add(ttl).UTC()
		snapshot.ExpiresAt = &expires
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&snapshot).Error
}

func (s *SQLSlot) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("snapshot_key = ?", key).
		Delete(&models.CartSnapshot{}).Error
}

// PurgeExpired removes every snapshot whose TTL has elapsed and returns how many rows went away.
func (s *SQLSlot) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", s.now().UTC()).
		Delete(&models.CartSnapshot{})
	return res.RowsAffected, res.Error
}
