package session

import (
	"context"
	"fmt"
	"sync"
)

// Storage keys used by the Store. Kept stable so sessions written by
// one process version remain readable by the next.
const (
	KeyState    = "auth:state"
	KeyVerifier = "auth:code_verifier"
	KeyTokens   = "auth:tokens"
	KeyUser     = "auth:user"
)

// Storage is the capability a Store needs from its backing medium.
// Get returns ErrKeyNotFound for a key with no value. Remove of an
// absent key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStorage is an in-process Storage, used by tests and by
// deployments that deliberately forget sessions on restart. It is
// safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

// Get satisfies the Storage interface.
func (s *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	const op = "session.(MemoryStorage).Get"
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", op, key, ErrKeyNotFound)
	}
	return v, nil
}

// Set satisfies the Storage interface.
func (s *MemoryStorage) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Remove satisfies the Storage interface.
func (s *MemoryStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
