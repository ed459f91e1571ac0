// Package file stores research results as JSON files on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

// ResultCache implements domain.ResultCache as one file per key.
type ResultCache struct {
	dir string
}

// NewResultCache creates a cache rooted at dir. The directory is created on first write.
func NewResultCache(dir string) *ResultCache {
	return &ResultCache{dir: dir}
}

func (c *ResultCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached result for key or domain.ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.AngleResult, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var result domain.AngleResult
	if err := json.Unmarshal(data, &result); err != nil {
		observability.FromContext(ctx).Warn("corrupt cache file, treating as miss",
			observability.String("path", c.path(key)),
			observability.Error(err))
		return nil, domain.ErrCacheMiss
	}

	return &result, nil
}

// Set stores result under key, replacing any previous entry.
func (c *ResultCache) Set(ctx context.Context, key string, result *domain.AngleResult) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	// Write then rename so readers never see a partial file.
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	observability.FromContext(ctx).Debug("cache entry stored",
		observability.String("path", c.path(key)),
		observability.Int("data_size", len(data)))
	return nil
}
