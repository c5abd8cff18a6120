package cart

import (
	"context"
	"time"
)

// RecordStore persists sync records with a bounded lifetime.
// Get returns (nil, nil) when no live record exists.
type RecordStore interface {
	Get(ctx context.Context, sessionID SessionID) (*SyncRecord, error)
	// Put replaces the record and resets its expiry to ttl from now
	Put(ctx context.Context, record *SyncRecord, ttl time.Duration) error
	Delete(ctx context.Context, sessionID SessionID) error
	Ping(ctx context.Context) error
	Close() error
}
