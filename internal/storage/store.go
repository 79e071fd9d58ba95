// Package storage provides the key-value blob store behind the model
// catalog. Values live in named collections.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/philipparndt/goobj/internal/config"
	"go.uber.org/zap"
)

// Collections used by the catalog
const (
	CollectionModels     = "models"
	CollectionFiles      = "files"
	CollectionThumbnails = "thumbnails"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("storage: not found")

// Item is a key and its value
type Item struct {
	Key   string
	Value []byte
}

// Store persists opaque values under (collection, key)
type Store interface {
	// Get returns ErrNotFound if the key is absent
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Set(ctx context.Context, collection, key string, value []byte) error
	// Remove is a no-op for absent keys
	Remove(ctx context.Context, collection, key string) error
	// List returns all items of a collection sorted by key
	List(ctx context.Context, collection string) ([]Item, error)
}

// validateName rejects empty names and names that would escape a
// collection when used as a path or object key
func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("storage: %s is required", kind)
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("storage: invalid %s %q", kind, name)
	}
	return nil
}

func validate(collection, key string) error {
	if err := validateName("collection", collection); err != nil {
		return err
	}
	return validateName("key", key)
}

// New creates the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), nil
	case config.BackendFS:
		return NewFSStore(cfg.Dir)
	case config.BackendS3:
		return NewS3Store(ctx, cfg.S3, WithLogger(logger))
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
