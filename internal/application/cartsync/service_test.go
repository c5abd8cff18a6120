package cartsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/shared"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMetrics struct {
	mu     sync.Mutex
	pulls  int
	pushes map[string]int
	clears int
	errors map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{pushes: map[string]int{}, errors: map[string]int{}}
}

func (m *recordingMetrics) RecordPull(ctx context.Context, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulls++
}

func (m *recordingMetrics) RecordPush(ctx context.Context, origin string, items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes[origin]++
}

func (m *recordingMetrics) RecordClear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
}

func (m *recordingMetrics) RecordError(ctx context.Context, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[operation]++
}

type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, cart.SessionID) (*cart.SyncRecord, error) { return nil, s.err }
func (s failingStore) Put(context.Context, *cart.SyncRecord, time.Duration) error     { return s.err }
func (s failingStore) Delete(context.Context, cart.SessionID) error                  { return s.err }
func (s failingStore) Ping(context.Context) error                                    { return s.err }
func (s failingStore) Close() error                                                  { return nil }

func newTestService(t *testing.T) (*Service, *fakeClock, *recordingMetrics) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := cache.NewInMemoryCartStore(time.Hour, cache.WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })

	metrics := newRecordingMetrics()
	svc := NewService(store, time.Hour,
		WithClock(clock.Now),
		WithMetrics(metrics),
		WithLogger(zaptest.NewLogger(t)),
	)
	return svc, clock, metrics
}

func testLine(key string, qty int) cart.Line {
	return cart.Line{Key: key, DisplayName: key, UnitPrice: 1000, Quantity: qty}
}

func TestService_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record is not an error", func(t *testing.T) {
		svc, _, metrics := newTestService(t)
		result, err := svc.GetCart(ctx, "sess_1")
		require.NoError(t, err)
		assert.False(t, result.Found)
		assert.NotNil(t, result.Lines)
		assert.Empty(t, result.Lines)
		assert.True(t, result.UpdatedAt.IsZero())
		assert.Equal(t, 1, metrics.pulls)
	})

	t.Run("validates session id", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.GetCart(ctx, "  ")
		assert.ErrorIs(t, err, cart.ErrSessionIDRequired)
		assert.ErrorIs(t, err, shared.NewDomainError("VALIDATION_REQUIRED", ""))
	})
}

func TestService_SyncCart(t *testing.T) {
	ctx := context.Background()

	t.Run("write then read", func(t *testing.T) {
		svc, clock, metrics := newTestService(t)

		result, err := svc.SyncCart(ctx, SyncCommand{
			SessionID: " sess_1 ",
			Lines:     []cart.Line{testLine("A", 2), testLine("B", 0), testLine("A", 1)},
			Origin:    "zalo",
		})
		require.NoError(t, err)
		assert.Equal(t, clock.Now(), result.UpdatedAt)
		assert.Equal(t, 1, result.ItemsCount)
		assert.Equal(t, 1, metrics.pushes["mini"])

		got, err := svc.GetCart(ctx, "sess_1")
		require.NoError(t, err)
		assert.True(t, got.Found)
		assert.Equal(t, cart.OriginMini, got.Origin)
		assert.Equal(t, result.UpdatedAt, got.UpdatedAt)
		assert.Equal(t, map[string]int{"A": 3}, cart.QuantitiesByKey(got.Lines))
	})

	t.Run("later write wins across origins", func(t *testing.T) {
		svc, clock, _ := newTestService(t)

		first, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("A", 1)}, Origin: "web"})
		require.NoError(t, err)
		clock.Advance(time.Second)
		second, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("B", 4)}, Origin: "mini"})
		require.NoError(t, err)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

		got, err := svc.GetCart(ctx, "sess_1")
		require.NoError(t, err)
		assert.Equal(t, cart.OriginMini, got.Origin)
		assert.Equal(t, map[string]int{"B": 4}, cart.QuantitiesByKey(got.Lines))
	})

	t.Run("timestamps strictly increase within one instant", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		var last time.Time
		for i := 0; i < 5; i++ {
			result, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("A", i+1)}})
			require.NoError(t, err)
			assert.True(t, result.UpdatedAt.After(last))
			last = result.UpdatedAt
		}
	})

	t.Run("unknown origin and empty cart", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		result, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Origin: "kiosk"})
		require.NoError(t, err)
		assert.Zero(t, result.ItemsCount)

		got, err := svc.GetCart(ctx, "sess_1")
		require.NoError(t, err)
		assert.True(t, got.Found)
		assert.Equal(t, cart.OriginUnknown, got.Origin)
	})

	t.Run("record expires after ttl of inactivity", func(t *testing.T) {
		svc, clock, _ := newTestService(t)
		_, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("A", 1)}})
		require.NoError(t, err)

		clock.Advance(50 * time.Minute)
		_, err = svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("A", 2)}})
		require.NoError(t, err)

		clock.Advance(50 * time.Minute)
		got, err := svc.GetCart(ctx, "sess_1")
		require.NoError(t, err)
		assert.True(t, got.Found, "put refreshes the ttl")

		clock.Advance(11 * time.Minute)
		got, err = svc.GetCart(ctx, "sess_1")
		require.NoError(t, err)
		assert.False(t, got.Found)
	})

	t.Run("rejects invalid session ids", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.SyncCart(ctx, SyncCommand{SessionID: "has space"})
		assert.ErrorIs(t, err, cart.ErrSessionIDInvalid)
	})
}

func TestService_ClearCart(t *testing.T) {
	ctx := context.Background()
	svc, _, metrics := newTestService(t)

	_, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("A", 1)}})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, "sess_1"))
	require.NoError(t, svc.ClearCart(ctx, "sess_1"))
	assert.Equal(t, 2, metrics.clears)

	got, err := svc.GetCart(ctx, "sess_1")
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Empty(t, got.Lines)
}

func TestService_StoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unbound store", func(t *testing.T) {
		svc := NewService(nil, 0)
		_, err := svc.GetCart(ctx, "sess_1")
		assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
		_, err = svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1"})
		assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
		assert.ErrorIs(t, svc.ClearCart(ctx, "sess_1"), shared.ErrStoreUnavailable)
		assert.ErrorIs(t, svc.Ping(ctx), shared.ErrStoreUnavailable)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		storeErr := errors.New("connection reset")
		metrics := newRecordingMetrics()
		svc := NewService(failingStore{err: storeErr}, 0, WithMetrics(metrics))

		_, err := svc.SyncCart(ctx, SyncCommand{SessionID: "sess_1", Lines: []cart.Line{testLine("A", 1)}})
		assert.ErrorIs(t, err, storeErr)
		_, err = svc.GetCart(ctx, "sess_1")
		assert.ErrorIs(t, err, storeErr)
		assert.Equal(t, map[string]int{"sync": 1, "get": 1}, metrics.errors)
	})
}
