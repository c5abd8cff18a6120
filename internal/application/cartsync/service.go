// Package cartsync is the server side of cart synchronization: one
// last-writer-wins record per anonymous session.
package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/shared"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultTTL is how long an untouched record is kept
const DefaultTTL = 30 * 24 * time.Hour

// Metrics receives per-operation counts
type Metrics interface {
	RecordPull(ctx context.Context, found bool)
	RecordPush(ctx context.Context, origin string, items int)
	RecordClear(ctx context.Context)
	RecordError(ctx context.Context, operation string)
}

type nopMetrics struct{}

func (nopMetrics) RecordPull(context.Context, bool)        {}
func (nopMetrics) RecordPush(context.Context, string, int) {}
func (nopMetrics) RecordClear(context.Context)             {}
func (nopMetrics) RecordError(context.Context, string)     {}

// SyncCommand replaces a session's record
type SyncCommand struct {
	SessionID string
	Lines     []cart.Line
	Origin    string
}

// CartResult is the stored cart for a session.
// Found is false when no record exists; Lines is then empty and UpdatedAt zero.
type CartResult struct {
	Lines     []cart.Line
	UpdatedAt time.Time
	Origin    cart.Origin
	Found     bool
}

// SyncResult acknowledges a write
type SyncResult struct {
	UpdatedAt  time.Time
	ItemsCount int
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service reads and replaces sync records
type Service struct {
	store   cart.RecordStore
	ttl     time.Duration
	now     func() time.Time
	metrics Metrics
	logger  *zap.Logger

	clockMu sync.Mutex
	last    time.Time
}

// NewService creates a service over store. A non-positive ttl uses DefaultTTL.
// A nil store makes every operation fail with shared.ErrStoreUnavailable.
func NewService(store cart.RecordStore, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		metrics: nopMetrics{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the session's record or Found=false
func (s *Service) GetCart(ctx context.Context, rawSessionID string) (*CartResult, error) {
	sessionID, err := cart.ParseSessionID(rawSessionID)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "cart_sync", "get")
	defer span.End()

	store, err := s.requireStore()
	if err != nil {
		return nil, s.fail(ctx, span, "get", err)
	}
	record, err := store.Get(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, span, "get", fmt.Errorf("get cart: %w", err))
	}

	s.metrics.RecordPull(ctx, record != nil)
	telemetry.SetOK(span)
	if record == nil {
		return &CartResult{Lines: []cart.Line{}}, nil
	}
	return &CartResult{
		Lines:     cart.Normalize(record.Lines),
		UpdatedAt: record.UpdatedAt,
		Origin:    record.Origin,
		Found:     true,
	}, nil
}

// SyncCart replaces the session's record with normalized lines stamped now
// and restarts its retention window.
func (s *Service) SyncCart(ctx context.Context, cmd SyncCommand) (*SyncResult, error) {
	sessionID, err := cart.ParseSessionID(cmd.SessionID)
	if err != nil {
		return nil, err
	}
	origin := cart.ParseOrigin(cmd.Origin)
	ctx, span := telemetry.StartServiceSpan(ctx, "cart_sync", "sync",
		attribute.String("origin", origin.String()),
	)
	defer span.End()

	store, err := s.requireStore()
	if err != nil {
		return nil, s.fail(ctx, span, "sync", err)
	}

	record := cart.NewSyncRecord(sessionID, cmd.Lines, origin, s.tick())
	if err := store.Put(ctx, record, s.ttl); err != nil {
		return nil, s.fail(ctx, span, "sync", fmt.Errorf("put cart: %w", err))
	}

	s.metrics.RecordPush(ctx, origin.String(), record.ItemsCount())
	telemetry.SetOK(span)
	s.logger.Debug("Cart synced",
		zap.String("session_id", sessionID.String()),
		zap.String("origin", origin.String()),
		zap.Int("items_count", record.ItemsCount()),
	)
	return &SyncResult{UpdatedAt: record.UpdatedAt, ItemsCount: record.ItemsCount()}, nil
}

// ClearCart deletes the session's record. Deleting a missing record succeeds.
func (s *Service) ClearCart(ctx context.Context, rawSessionID string) error {
	sessionID, err := cart.ParseSessionID(rawSessionID)
	if err != nil {
		return err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "cart_sync", "clear")
	defer span.End()

	store, err := s.requireStore()
	if err != nil {
		return s.fail(ctx, span, "clear", err)
	}
	if err := store.Delete(ctx, sessionID); err != nil {
		return s.fail(ctx, span, "clear", fmt.Errorf("delete cart: %w", err))
	}

	s.metrics.RecordClear(ctx)
	telemetry.SetOK(span)
	return nil
}

// Ping checks the backing store
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

func (s *Service) requireStore() (cart.RecordStore, error) {
	if s.store == nil {
		return nil, shared.ErrStoreUnavailable.WithMessage("cart store is not configured")
	}
	return s.store, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	s.metrics.RecordError(ctx, operation)
	telemetry.RecordError(span, err)
	s.logger.Error("Cart store operation failed", zap.String("operation", operation), zap.Error(err))
	return err
}

// tick returns now in UTC at millisecond precision, nudged forward so
// successive writes from this process never share a timestamp.
func (s *Service) tick() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	now := s.now().UTC().Truncate(time.Millisecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Millisecond)
	}
	s.last = now
	return now
}
