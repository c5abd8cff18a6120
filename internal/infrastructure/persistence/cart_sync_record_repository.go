package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/shared"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartStore implements cart.RecordStore on a SQL table.
// Expiry is enforced on read; PurgeExpired reclaims the rows.
type GormCartStore struct {
	db  *gorm.DB
	now func() time.Time
}

// GormCartStoreOption configures a GormCartStore
type GormCartStoreOption func(*GormCartStore)

// WithNow overrides the clock used for expiry
func WithNow(now func() time.Time) GormCartStoreOption {
	return func(s *GormCartStore) {
		s.now = now
	}
}

// NewGormCartStore creates a store over db
func NewGormCartStore(db *gorm.DB, opts ...GormCartStoreOption) *GormCartStore {
	s := &GormCartStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live record for sessionID or nil
func (s *GormCartStore) Get(ctx context.Context, sessionID cart.SessionID) (*cart.SyncRecord, error) {
	var model models.CartSyncRecordModel
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", sessionID.String(), s.now().UTC()).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get cart record", err)
	}
	return model.ToDomain()
}

// Put upserts the record and slides its expiry to now + ttl
func (s *GormCartStore) Put(ctx context.Context, record *cart.SyncRecord, ttl time.Duration) error {
	model, err := models.CartSyncRecordModelFromDomain(record, s.now().Add(ttl))
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lines", "origin", "updated_at", "expires_at"}),
	}).Create(model).Error
	if err != nil {
		return unavailable("put cart record", err)
	}
	return nil
}

// Delete removes the record
func (s *GormCartStore) Delete(ctx context.Context, sessionID cart.SessionID) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Delete(&models.CartSyncRecordModel{}).Error
	if err != nil {
		return unavailable("delete cart record", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed
func (s *GormCartStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&models.CartSyncRecordModel{})
	if result.Error != nil {
		return 0, unavailable("purge expired cart records", result.Error)
	}
	return result.RowsAffected, nil
}

// Ping checks the database connection
func (s *GormCartStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping database", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping database", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *GormCartStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shared.ErrStoreUnavailable, err)
}

var _ cart.RecordStore = (*GormCartStore)(nil)
