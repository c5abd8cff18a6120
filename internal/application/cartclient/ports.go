// Package cartclient keeps a client's cart usable offline and converges it
// with the server-side record shared by every surface of the same session.
package cartclient

import (
	"context"
	"errors"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// Storage keys
const (
	StorageKeyCart    = "cart"
	StorageKeySession = "cart_session_id"
)

// Event sources used by writers that are not a SyncManager
const (
	SourceLocal    = "local"
	SourceExternal = "external"
)

// ErrRemoteClearFailed marks a clear that succeeded locally but not on the server
var ErrRemoteClearFailed = errors.New("cart cleared locally but remote clear failed")

// Storage is the durable key/value store a client keeps its cart in
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// PushRequest replaces the server record for a session
type PushRequest struct {
	SessionID cart.SessionID
	Lines     []cart.Line
	Origin    cart.Origin
	// NoRetry asks the transport to make a single attempt
	NoRetry bool
}

// PushResult is the server's acknowledgement of a push
type PushResult struct {
	UpdatedAt  time.Time
	ItemsCount int
}

// RemoteCart is the client's view of the server-side record store
type RemoteCart interface {
	// Fetch returns nil when the server holds no record
	Fetch(ctx context.Context, sessionID cart.SessionID) (*cart.SyncRecord, error)
	Push(ctx context.Context, req PushRequest) (PushResult, error)
	Delete(ctx context.Context, sessionID cart.SessionID) error
}
