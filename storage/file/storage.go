// Package filestore is a core.Storage persisted to a JSON file, for the CLI.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

type Storage struct {
	path string
	mu   sync.Mutex
}

var _ core.Storage = (*Storage)(nil)

// New returns a Storage backed by the file at `path`, created on first write.
func New(path string) (*Storage, error) {
	if path == "" {
		return nil, core.NewArgumentError("storage file path required")
	}
	return &Storage{path: path}, nil
}

func (s *Storage) Path() string { return s.path }

func (s *Storage) load() (map[string]string, error) {
	vals := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return vals, nil
		}
		return nil, errors.Wrap(err, "reading storage file")
	}
	if len(data) == 0 {
		return vals, nil
	}
	if err := json.Unmarshal(data, &vals); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", s.path)
	}
	return vals, nil
}

// save writes to a temporary file renamed over the previous one.
func (s *Storage) save(vals map[string]string) error {
	data, err := json.MarshalIndent(vals, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding storage")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "creating storage directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temporary storage file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "setting storage file mode")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing storage file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing storage file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing storage file")
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, err := s.load()
	if err != nil {
		return "", err
	}
	val, ok := vals[key]
	if !ok {
		return "", core.ErrStorageKeyNotFound
	}
	return val, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, err := s.load()
	if err != nil {
		return err
	}
	vals[key] = value
	return s.save(vals)
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(vals, k)
	}
	return s.save(vals)
}
