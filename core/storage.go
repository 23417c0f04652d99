package core

import (
	"context"
	"errors"
)

var ErrStorageKeyNotFound = errors.New("storage key not found")

// Storage is the durable client-local key/value storage the session is mirrored to.
type Storage interface {
	// Get returns ErrStorageKeyNotFound if `key` was never set or was deleted.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type namespacedStorage struct {
	Storage
	prefix string
}

// NamespacedStorage prefixes every key of `s` with `namespace`,
// so that several sessions can share one backend.
func NamespacedStorage(s Storage, namespace string) Storage {
	return &namespacedStorage{Storage: s, prefix: namespace + ":"}
}

func (s *namespacedStorage) Get(ctx context.Context, key string) (string, error) {
	return s.Storage.Get(ctx, s.prefix+key)
}

func (s *namespacedStorage) Set(ctx context.Context, key, value string) error {
	return s.Storage.Set(ctx, s.prefix+key, value)
}

func (s *namespacedStorage) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	return s.Storage.Delete(ctx, prefixed...)
}
