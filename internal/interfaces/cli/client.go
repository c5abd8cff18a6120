// Package cli implements cartctl, a terminal client that keeps a local cart
// file in sync with the cart sync API.
package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/config"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/event"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/localstore"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/remote"
)

// Client bundles one device's cart components
type Client struct {
	Storage  cartclient.Storage
	Notifier *event.InMemoryNotifier
	Local    *cartclient.LocalCartStore
	Sessions *cartclient.SessionProvider
	Remote   cartclient.RemoteCart
	Manager  *cartclient.SyncManager
	Logger   *zap.Logger

	// set when Storage is file backed
	files *localstore.FileStorage
}

// NewClient opens the cart directory from cfg and talks to cfg.ServerURL
func NewClient(cfg config.ClientConfig, logger *zap.Logger) (*Client, error) {
	dir := cfg.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		dir = filepath.Join(home, ".cartctl")
	}
	files, err := localstore.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}

	var transport *http.Client
	if cfg.RequestTimeout > 0 {
		transport = &http.Client{Timeout: cfg.RequestTimeout}
	}
	httpRemote := remote.NewHTTPClient(cfg.ServerURL, transport,
		remote.WithMaxRetries(cfg.MaxRetries),
		remote.WithLogger(logger),
	)

	c := Assemble(files, httpRemote, cartclient.SyncManagerConfig{
		Origin:        cart.ParseOrigin(cfg.Origin),
		Interval:      cfg.SyncInterval,
		UnloadTimeout: cfg.UnloadTimeout,
	}, logger)
	c.files = files
	return c, nil
}

// Assemble wires a client over any storage and remote
func Assemble(storage cartclient.Storage, remoteCart cartclient.RemoteCart, cfg cartclient.SyncManagerConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := event.NewInMemoryNotifier(logger)
	local := cartclient.NewLocalCartStore(storage, notifier, logger)
	sessions := cartclient.NewSessionProvider(storage)
	return &Client{
		Storage:  storage,
		Notifier: notifier,
		Local:    local,
		Sessions: sessions,
		Remote:   remoteCart,
		Manager:  cartclient.NewSyncManager(cfg, local, sessions, remoteCart, notifier, logger),
		Logger:   logger,
	}
}
