package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// CartSyncRecordModel is the persistence model for cart.SyncRecord
type CartSyncRecordModel struct {
	SessionID string    `gorm:"column:session_id;primaryKey;size:128"`
	Lines     string    `gorm:"column:lines;not null"`
	Origin    string    `gorm:"column:origin;size:16;not null;default:unknown"`
	SyncedAt  time.Time `gorm:"column:updated_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}

// TableName returns the table name for GORM
func (CartSyncRecordModel) TableName() string {
	return "cart_sync_records"
}

// ToDomain converts the model to a domain record
func (m *CartSyncRecordModel) ToDomain() (*cart.SyncRecord, error) {
	var lines []cart.Line
	if m.Lines != "" {
		if err := json.Unmarshal([]byte(m.Lines), &lines); err != nil {
			return nil, fmt.Errorf("decode lines for %s: %w", m.SessionID, err)
		}
	}
	return &cart.SyncRecord{
		SessionID: cart.SessionID(m.SessionID),
		Lines:     cart.Normalize(lines),
		UpdatedAt: m.SyncedAt.UTC(),
		Origin:    cart.Origin(m.Origin),
	}, nil
}

// CartSyncRecordModelFromDomain builds a model expiring at expiresAt
func CartSyncRecordModelFromDomain(r *cart.SyncRecord, expiresAt time.Time) (*CartSyncRecordModel, error) {
	lines := r.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	return &CartSyncRecordModel{
		SessionID: r.SessionID.String(),
		Lines:     string(data),
		Origin:    r.Origin.String(),
		SyncedAt:  r.UpdatedAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}
