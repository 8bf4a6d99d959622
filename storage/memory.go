package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goliatone/go-errors"
)

// MemoryStore is an in-memory ObjectStore for tests and local development
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

var _ ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: map[string][]byte{},
		types:   map[string]string{},
	}
}

func (s *MemoryStore) Upload(_ context.Context, key string, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read object body")
	}

	s.mu.Lock()
	s.objects[key] = data
	s.types[key] = contentType
	s.mu.Unlock()

	return s.PublicURL(key), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return errors.New("object not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound).
			WithMetadata(map[string]any{"key": key})
	}

	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return fmt.Sprintf("memory://objects/%s", key)
}

// Object returns the stored bytes and content type, for assertions.
func (s *MemoryStore) Object(key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, s.types[key], ok
}
