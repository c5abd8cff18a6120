package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"go.uber.org/zap"
)

var errUnchanged = errors.New("unchanged")

// LocalCartStore is the client's source of truth for what the shopper sees.
// Reads never fail: missing or corrupt data is an empty cart.
// Every successful write emits storage.changed then cart.changed.
type LocalCartStore struct {
	storage  Storage
	notifier cart.Notifier
	logger   *zap.Logger

	// serializes read-modify-write cycles inside this process
	mu sync.Mutex
	// lines as last written or observed by this process
	known []cart.Line
	// bumped under mu for every change, so events order like the writes
	seq uint64
}

// NewLocalCartStore creates a store over storage
func NewLocalCartStore(storage Storage, notifier cart.Notifier, logger *zap.Logger) *LocalCartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LocalCartStore{
		storage:  storage,
		notifier: notifier,
		logger:   logger.Named("local_cart"),
	}
	s.known = s.read().Lines
	return s
}

// Read returns the stored cart with totals recomputed from its lines
func (s *LocalCartStore) Read(ctx context.Context) cart.State {
	return s.read()
}

// Write normalizes and persists lines, then notifies listeners tagged with source
func (s *LocalCartStore) Write(ctx context.Context, lines []cart.Line, source string) (cart.State, error) {
	return s.update(ctx, source, func([]cart.Line) ([]cart.Line, error) {
		return lines, nil
	})
}

// Add puts line into the cart, adding to the quantity of an existing line with the same key
func (s *LocalCartStore) Add(ctx context.Context, line cart.Line, source string) (cart.State, error) {
	if line.Quantity < 1 {
		return cart.State{}, cart.ErrLineQuantity
	}
	key := line.ResolvedKey()
	if key == "" {
		return cart.State{}, cart.ErrLineProductRequired
	}
	line.Key = key

	return s.update(ctx, source, func(current []cart.Line) ([]cart.Line, error) {
		for i := range current {
			if current[i].Key == key {
				current[i].Quantity = cart.AddQuantity(current[i].Quantity, line.Quantity)
				return current, nil
			}
		}
		return append(current, line), nil
	})
}

// SetQuantity sets the quantity of a line; zero or less removes it
func (s *LocalCartStore) SetQuantity(ctx context.Context, key string, quantity int, source string) (cart.State, error) {
	return s.update(ctx, source, func(current []cart.Line) ([]cart.Line, error) {
		for i := range current {
			if current[i].Key == key {
				current[i].Quantity = quantity
				return current, nil
			}
		}
		return nil, cart.ErrLineNotFound
	})
}

// Remove deletes the line with key
func (s *LocalCartStore) Remove(ctx context.Context, key string, source string) (cart.State, error) {
	return s.SetQuantity(ctx, key, 0, source)
}

// MergeRemote merges remote lines into the stored cart and writes only when
// the result differs. It reports whether a write happened.
func (s *LocalCartStore) MergeRemote(ctx context.Context, remote []cart.Line, source string) (bool, cart.State, error) {
	state, err := s.update(ctx, source, func(current []cart.Line) ([]cart.Line, error) {
		merged := cart.Merge(remote, current)
		if cart.SameLines(merged, current) {
			return nil, errUnchanged
		}
		return merged, nil
	})
	if errors.Is(err, errUnchanged) {
		return false, s.read(), nil
	}
	if err != nil {
		return false, cart.State{}, err
	}
	return true, state, nil
}

// Refresh rereads storage after another process may have written it. When the
// lines differ from what this process last saw it emits both events tagged
// SourceExternal and reports true.
func (s *LocalCartStore) Refresh(ctx context.Context) (bool, cart.State) {
	s.mu.Lock()
	state := s.read()
	if cart.SameLines(state.Lines, s.known) {
		s.mu.Unlock()
		return false, state
	}
	s.known = state.Lines
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.emit(ctx, state, SourceExternal, seq)
	return true, state
}

func (s *LocalCartStore) update(ctx context.Context, source string, fn func([]cart.Line) ([]cart.Line, error)) (cart.State, error) {
	s.mu.Lock()
	next, err := fn(cart.CloneLines(s.read().Lines))
	if err != nil {
		s.mu.Unlock()
		return cart.State{}, err
	}
	state := cart.NewState(next)
	err = s.persist(state)
	var seq uint64
	if err == nil {
		s.known = state.Lines
		s.seq++
		seq = s.seq
	}
	s.mu.Unlock()
	if err != nil {
		return cart.State{}, err
	}

	s.emit(ctx, state, source, seq)
	return state, nil
}

func (s *LocalCartStore) persist(state cart.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(StorageKeyCart, data); err != nil {
		return fmt.Errorf("store cart: %w", err)
	}
	return nil
}

func (s *LocalCartStore) emit(ctx context.Context, state cart.State, source string, seq uint64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, cart.ChangeEvent{Type: cart.EventStorageChanged, Source: source, State: state, Seq: seq})
	s.notifier.Emit(ctx, cart.ChangeEvent{Type: cart.EventCartChanged, Source: source, State: state, Seq: seq})
}

func (s *LocalCartStore) read() cart.State {
	data, ok, err := s.storage.Get(StorageKeyCart)
	if err != nil {
		s.logger.Warn("failed to read stored cart", zap.Error(err))
		return cart.EmptyState()
	}
	if !ok {
		return cart.EmptyState()
	}
	return cart.NewState(s.decode(data))
}

// decode accepts a bare array of lines, {"lines": [...]} and the older
// {"items": [...]}. Elements that fail to decode are skipped.
func (s *LocalCartStore) decode(data []byte) []cart.Line {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var raw []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			s.logger.Debug("corrupt stored cart", zap.Error(err))
			return nil
		}
	case '{':
		var wrapped struct {
			Lines []json.RawMessage `json:"lines"`
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			s.logger.Debug("corrupt stored cart", zap.Error(err))
			return nil
		}
		raw = wrapped.Lines
		if raw == nil {
			raw = wrapped.Items
		}
	default:
		s.logger.Debug("unrecognized stored cart shape")
		return nil
	}

	lines := make([]cart.Line, 0, len(raw))
	for _, item := range raw {
		var line cart.Line
		if err := json.Unmarshal(item, &line); err != nil {
			s.logger.Debug("skipping corrupt cart line", zap.Error(err))
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
