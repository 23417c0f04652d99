// Package inmem is a process-local core.Storage.
package inmem

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-admin/core"
)

type Storage struct {
	mu   sync.RWMutex
	vals map[string]string
}

var _ core.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{vals: make(map[string]string)}
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.vals[key]
	if !ok {
		return "", core.ErrStorageKeyNotFound
	}
	return val, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.vals[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.vals, k)
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vals)
}
