package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage persists values as a single JSON object in one file,
// created with 0600 permissions. Writes go through a temp file and
// rename so a crash mid-write never corrupts the stored session.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates a FileStorage at path. The file itself is
// created lazily on the first Set.
func NewFileStorage(path string) (*FileStorage, error) {
	const op = "session.NewFileStorage"
	if path == "" {
		return nil, fmt.Errorf("%s: missing path: %w", op, ErrInvalidParameter)
	}
	return &FileStorage{path: path}, nil
}

// Get satisfies the Storage interface.
func (s *FileStorage) Get(_ context.Context, key string) (string, error) {
	const op = "session.(FileStorage).Get"
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", op, key, ErrKeyNotFound)
	}
	return v, nil
}

// Set satisfies the Storage interface.
func (s *FileStorage) Set(_ context.Context, key string, value string) error {
	const op = "session.(FileStorage).Set"
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	values[key] = value
	if err := s.write(values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove satisfies the Storage interface.
func (s *FileStorage) Remove(_ context.Context, key string) error {
	const op = "session.(FileStorage).Remove"
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if err := s.write(values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FileStorage) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *FileStorage) write(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
