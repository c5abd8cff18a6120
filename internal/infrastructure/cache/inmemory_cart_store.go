package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

type entry struct {
	record    cart.SyncRecord
	expiresAt time.Time
}

// InMemoryCartStore implements cart.RecordStore with a process-local map.
// Suitable for tests and single-instance deployments; records do not survive a restart.
type InMemoryCartStore struct {
	mu        sync.RWMutex
	entries   map[cart.SessionID]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// InMemoryOption configures an InMemoryCartStore
type InMemoryOption func(*InMemoryCartStore)

// WithClock overrides the time source used for expiry
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryCartStore) {
		s.now = now
	}
}

// NewInMemoryCartStore creates the store and starts the expiry sweeper.
// A zero cleanupInterval defaults to five minutes.
func NewInMemoryCartStore(cleanupInterval time.Duration, opts ...InMemoryOption) *InMemoryCartStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	store := &InMemoryCartStore{
		entries:  make(map[cart.SessionID]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	store.wg.Add(1)
	go store.cleanupLoop(cleanupInterval)

	return store
}

// Get returns a copy of the live record or nil
func (s *InMemoryCartStore) Get(ctx context.Context, sessionID cart.SessionID) (*cart.SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, nil
	}
	record := e.record
	record.Lines = cart.CloneLines(e.record.Lines)
	return &record, nil
}

// Put stores a copy of the record
func (s *InMemoryCartStore) Put(ctx context.Context, record *cart.SyncRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.Lines = cart.CloneLines(record.Lines)
	s.entries[record.SessionID] = entry{
		record:    stored,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete removes the record
func (s *InMemoryCartStore) Delete(ctx context.Context, sessionID cart.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Ping always succeeds
func (s *InMemoryCartStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryCartStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries, including expired ones not yet swept
func (s *InMemoryCartStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryCartStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

func (s *InMemoryCartStore) purgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			purged++
		}
	}
	return purged
}

var _ cart.RecordStore = (*InMemoryCartStore)(nil)
