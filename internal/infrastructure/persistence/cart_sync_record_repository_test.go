package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestGormCartStore_RoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := NewGormCartStore(db.DB, WithNow(clock.Now))
	ctx := context.Background()

	t.Run("absent record is nil without error", func(t *testing.T) {
		record, err := store.Get(ctx, "sess_missing")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("put then get", func(t *testing.T) {
		lines := []cart.Line{
			cart.Line{Key: "p1", ProductID: "p1", DisplayName: "Áo thun", UnitPrice: 150000, Quantity: 2}.WithOriginalPrice(200000),
		}
		record := cart.NewSyncRecord("sess_1", lines, cart.OriginWeb, clock.Now())
		require.NoError(t, store.Put(ctx, record, time.Hour))

		got, err := store.Get(ctx, "sess_1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cart.OriginWeb, got.Origin)
		assert.True(t, got.UpdatedAt.Equal(record.UpdatedAt))
		assert.True(t, cart.SameLines(lines, got.Lines))
	})

	t.Run("put overwrites and slides expiry", func(t *testing.T) {
		clock.Advance(50 * time.Minute)
		record := cart.NewSyncRecord("sess_1", []cart.Line{{Key: "p2", Quantity: 1}}, cart.OriginMini, clock.Now())
		require.NoError(t, store.Put(ctx, record, time.Hour))

		clock.Advance(50 * time.Minute)
		got, err := store.Get(ctx, "sess_1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cart.OriginMini, got.Origin)
		assert.Equal(t, map[string]int{"p2": 1}, cart.QuantitiesByKey(got.Lines))
	})

	t.Run("expired record reads as absent and is purged", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		got, err := store.Get(ctx, "sess_1")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := store.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete", func(t *testing.T) {
		record := cart.NewSyncRecord("sess_2", []cart.Line{{Key: "p1", Quantity: 1}}, cart.OriginWeb, clock.Now())
		require.NoError(t, store.Put(ctx, record, time.Hour))
		require.NoError(t, store.Delete(ctx, "sess_2"))
		// deleting again is fine
		require.NoError(t, store.Delete(ctx, "sess_2"))

		got, err := store.Get(ctx, "sess_2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty lines persist as empty array", func(t *testing.T) {
		record := cart.NewSyncRecord("sess_3", nil, cart.OriginWeb, clock.Now())
		require.NoError(t, store.Put(ctx, record, time.Hour))

		got, err := store.Get(ctx, "sess_3")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotNil(t, got.Lines)
		assert.Empty(t, got.Lines)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestGormCartStore_DatabaseFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	store := NewGormCartStore(db)

	mock.ExpectQuery(`SELECT \* FROM "cart_sync_records"`).
		WillReturnError(errors.New("connection refused"))

	_, err = store.Get(context.Background(), "sess_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
