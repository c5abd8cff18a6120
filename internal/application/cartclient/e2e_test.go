package cartclient_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartsync"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/cache"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/event"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/localstore"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/remote"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/middleware"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/router"
)

const sharedSession = "sess_shared"

type device struct {
	local   *cartclient.LocalCartStore
	manager *cartclient.SyncManager
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := cache.NewInMemoryCartStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	service := cartsync.NewService(store, time.Hour)
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:      zaptest.NewLogger(t),
		Service:     service,
		Health:      service,
		Backend:     "memory",
		CORS:        middleware.DefaultCORSConfig(),
		MaxBodySize: 1 << 20,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func newDevice(t *testing.T, baseURL string, origin cart.Origin) *device {
	t.Helper()
	log := zaptest.NewLogger(t)
	storage := localstore.NewMemoryStorage()
	require.NoError(t, storage.Set(cartclient.StorageKeySession, []byte(sharedSession)))

	notifier := event.NewInMemoryNotifier(log)
	local := cartclient.NewLocalCartStore(storage, notifier, log)
	sessions := cartclient.NewSessionProvider(storage)
	client := remote.NewHTTPClient(baseURL, nil, remote.WithBackoff(time.Millisecond, 5*time.Millisecond), remote.WithLogger(log))
	manager := cartclient.NewSyncManager(cartclient.SyncManagerConfig{Origin: origin, Interval: time.Hour},
		local, sessions, client, notifier, log)
	return &device{local: local, manager: manager}
}

func item(id string, qty int) cart.Line {
	line, _ := cart.NewLine(id, "", id, 10000, qty)
	return line
}

func TestSync_PushThenPullFromFreshDevice(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	web := newDevice(t, srv.URL, cart.OriginWeb)
	_, err := web.local.Write(ctx, []cart.Line{item("A", 2), item("B", 1)}, cartclient.SourceLocal)
	require.NoError(t, err)
	require.NoError(t, web.manager.PushToServer(ctx, false))

	record, err := remote.NewHTTPClient(srv.URL, nil).Fetch(ctx, sharedSession)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, cart.OriginWeb, record.Origin)

	mini := newDevice(t, srv.URL, cart.OriginMini)
	require.NoError(t, mini.manager.PullFromServer(ctx))

	assert.Equal(t, map[string]int{"A": 2, "B": 1}, cart.QuantitiesByKey(mini.local.Read(ctx).Lines))
	assert.Equal(t, web.manager.LastApplied(), mini.manager.LastApplied())
}

func TestSync_TwoDevicesConverge(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	a := newDevice(t, srv.URL, cart.OriginWeb)
	b := newDevice(t, srv.URL, cart.OriginMini)

	_, err := a.local.Write(ctx, []cart.Line{item("A", 2)}, cartclient.SourceLocal)
	require.NoError(t, err)
	_, err = b.local.Write(ctx, []cart.Line{item("A", 1), item("B", 3)}, cartclient.SourceLocal)
	require.NoError(t, err)

	require.NoError(t, a.manager.PushToServer(ctx, false))
	require.NoError(t, b.manager.ForceSync(ctx))
	require.NoError(t, a.manager.ForceSync(ctx))

	want := map[string]int{"A": 2, "B": 3}
	assert.Equal(t, want, cart.QuantitiesByKey(a.local.Read(ctx).Lines))
	assert.Equal(t, want, cart.QuantitiesByKey(b.local.Read(ctx).Lines))
}

func TestSync_ClearReachesServer(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	a := newDevice(t, srv.URL, cart.OriginWeb)
	_, err := a.local.Write(ctx, []cart.Line{item("A", 1)}, cartclient.SourceLocal)
	require.NoError(t, err)
	require.NoError(t, a.manager.PushToServer(ctx, false))

	require.NoError(t, a.manager.ClearCart(ctx))

	fresh := newDevice(t, srv.URL, cart.OriginWeb)
	require.NoError(t, fresh.manager.PullFromServer(ctx))
	assert.True(t, fresh.local.Read(ctx).IsEmpty())
}

func TestSync_RunningManagerPushesLocalEdits(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	a := newDevice(t, srv.URL, cart.OriginWeb)
	a.manager.Start(ctx)
	t.Cleanup(a.manager.Stop)

	_, err := a.local.Add(ctx, item("C", 4), cartclient.SourceLocal)
	require.NoError(t, err)

	b := newDevice(t, srv.URL, cart.OriginMini)
	require.Eventually(t, func() bool {
		if err := b.manager.PullFromServer(ctx); err != nil {
			return false
		}
		return cart.QuantitiesByKey(b.local.Read(ctx).Lines)["C"] == 4
	}, 5*time.Second, 20*time.Millisecond)

	a.manager.HandleUnload()
	a.manager.Stop()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	assert.NoError(t, a.manager.Wait(waitCtx))
}
