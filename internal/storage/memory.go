package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps values in process memory. Values are copied on the way
// in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string) ([]byte, error) {
	if err := validate(collection, key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(value), nil
}

func (s *MemoryStore) Set(_ context.Context, collection, key string, value []byte) error {
	if err := validate(collection, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.collections[collection]
	if !ok {
		items = make(map[string][]byte)
		s.collections[collection] = items
	}
	items[key] = bytes.Clone(value)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, collection, key string) error {
	if err := validate(collection, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]Item, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(s.collections[collection]))
	for key, value := range s.collections[collection] {
		items = append(items, Item{Key: key, Value: bytes.Clone(value)})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items, nil
}
