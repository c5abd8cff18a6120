package cartclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// SessionProvider returns the installation's anonymous session id, creating it once
type SessionProvider struct {
	storage  Storage
	generate func() (cart.SessionID, error)
	mu       sync.Mutex
}

// NewSessionProvider creates a provider over storage
func NewSessionProvider(storage Storage) *SessionProvider {
	return &SessionProvider{storage: storage, generate: cart.NewSessionID}
}

// GetOrCreate returns the stored id or generates and stores a new one.
// Concurrent callers in one process get the same id.
func (p *SessionProvider) GetOrCreate(ctx context.Context) (cart.SessionID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok, err := p.storage.Get(StorageKeySession)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if ok {
		// browsers stored the id JSON-encoded
		if id := strings.Trim(strings.TrimSpace(string(data)), `"`); id != "" {
			return cart.SessionID(id), nil
		}
	}

	id, err := p.generate()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	if err := p.storage.Set(StorageKeySession, []byte(id)); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	return id, nil
}
