package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tempSuffix = ".tmp"

// FSStore keeps each collection in a directory under root and each value
// in a file named after its key
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates root if needed
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(collection, key string) string {
	return filepath.Join(s.root, collection, key)
}

func (s *FSStore) Get(_ context.Context, collection, key string) ([]byte, error) {
	if err := validate(collection, key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(collection, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
	}
	return data, nil
}

// Set writes to a temporary file and renames it into place so readers
// never see a partial value
func (s *FSStore) Set(_ context.Context, collection, key string, value []byte) error {
	if err := validate(collection, key); err != nil {
		return err
	}

	dir := filepath.Join(s.root, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(dir, key+"-*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s/%s: %w", collection, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, key, err)
	}

	if err := os.Rename(tmp.Name(), s.path(collection, key)); err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *FSStore) Remove(_ context.Context, collection, key string) error {
	if err := validate(collection, key); err != nil {
		return err
	}

	err := os.Remove(s.path(collection, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *FSStore) List(_ context.Context, collection string) ([]Item, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, collection)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue // removed while listing
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s/%s: %w", collection, entry.Name(), err)
		}
		items = append(items, Item{Key: entry.Name(), Value: data})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items, nil
}
