// Package localstore provides durable client-side key/value storage for carts.
package localstore

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidKey is returned for keys that cannot be stored
var ErrInvalidKey = errors.New("localstore: invalid key")

// Storage is a small key/value store with atomic per-key writes.
// A reader never observes a partially written value.
type Storage interface {
	// Get returns the value and whether the key exists
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	// Delete removes the key; deleting an absent key is not an error
	Delete(key string) error
}

// MemoryStorage is a mutex-guarded in-process Storage.
// Several clients sharing one MemoryStorage behave like tabs of one browser.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage creates an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Get implements Storage
func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Storage
func (m *MemoryStorage) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Storage
func (m *MemoryStorage) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func validateKey(key string) error {
	if key == "" || key[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*FileStorage)(nil)
)
