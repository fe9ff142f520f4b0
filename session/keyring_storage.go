package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the service name sessions are filed under
// in the operating system keyring.
const DefaultKeyringService = "college-console"

// KeyringStorage keeps values in the operating system keyring, which
// survives restarts without leaving tokens on disk in the clear.
type KeyringStorage struct {
	service string
}

// NewKeyringStorage creates a KeyringStorage. An empty service falls
// back to DefaultKeyringService.
func NewKeyringStorage(service string) *KeyringStorage {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStorage{service: service}
}

// Get satisfies the Storage interface.
func (s *KeyringStorage) Get(_ context.Context, key string) (string, error) {
	const op = "session.(KeyringStorage).Get"
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %q: %w", op, key, ErrKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// Set satisfies the Storage interface.
func (s *KeyringStorage) Set(_ context.Context, key string, value string) error {
	const op = "session.(KeyringStorage).Set"
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove satisfies the Storage interface.
func (s *KeyringStorage) Remove(_ context.Context, key string) error {
	const op = "session.(KeyringStorage).Remove"
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
