package event

import (
	"context"
	"sync"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"go.uber.org/zap"
)

// InMemoryNotifier implements cart.Notifier with synchronous in-process dispatch.
// Listeners run in registration order on the emitting goroutine; a panicking
// listener is logged and does not stop the others.
type InMemoryNotifier struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    uint64
	logger    *zap.Logger
}

type subscription struct {
	id       uint64
	listener cart.Listener
}

// NewInMemoryNotifier creates a notifier
func NewInMemoryNotifier(logger *zap.Logger) *InMemoryNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryNotifier{logger: logger}
}

// OnChange registers a listener. The returned func removes it and is safe to call twice.
func (n *InMemoryNotifier) OnChange(listener cart.Listener) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, subscription{id: id, listener: listener})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

// Emit delivers event to every listener registered at the time of the call
func (n *InMemoryNotifier) Emit(ctx context.Context, event cart.ChangeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	n.mu.RLock()
	snapshot := make([]subscription, len(n.listeners))
	copy(snapshot, n.listeners)
	n.mu.RUnlock()

	for _, sub := range snapshot {
		n.dispatch(ctx, sub.listener, event)
	}
}

// ListenerCount returns the number of registered listeners
func (n *InMemoryNotifier) ListenerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func (n *InMemoryNotifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.listeners {
		if sub.id == id {
			n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
			return
		}
	}
}

func (n *InMemoryNotifier) dispatch(ctx context.Context, listener cart.Listener, event cart.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("cart listener panicked",
				zap.String("event_type", string(event.Type)),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	listener(ctx, event)
}

var _ cart.Notifier = (*InMemoryNotifier)(nil)
