package render

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"

	"github.com/promptfit/promptfit/pkg/compress"
	"github.com/promptfit/promptfit/pkg/logging"
)

// Cache stores rendered content keyed by content hash and level, so an
// unchanged file never hits the model twice. It is an explicit object
// handed to the aggregator, never package state.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	dir     string
	logger  logging.Logger
}

// NewCache creates an in-memory cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]string),
		logger:  logging.NewComponentLogger("render"),
	}
}

// NewDiskCache creates a cache that also persists entries under dir, so
// renders survive across runs.
func NewDiskCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	cache := NewCache()
	cache.dir = dir
	return cache, nil
}

// DefaultCacheDir is where the disk cache lives unless overridden.
func DefaultCacheDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".promptfit", "cache"), nil
}

func cacheKey(content string, level compress.Level) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x_%s", sum, level)
}

// Get returns the cached render of content at level, if present.
func (c *Cache) Get(content string, level compress.Level) (string, bool) {
	key := cacheKey(content, level)

	c.mu.RLock()
	rendered, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return rendered, true
	}

	if c.dir == "" {
		return "", false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return "", false
	}

	c.mu.Lock()
	c.entries[key] = string(data)
	c.mu.Unlock()
	return string(data), true
}

// Put stores a rendered result. Disk writes are best effort.
func (c *Cache) Put(content string, level compress.Level, rendered string) {
	key := cacheKey(content, level)

	c.mu.Lock()
	c.entries[key] = rendered
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, key), []byte(rendered), 0o644); err != nil {
		c.logger.Warn("failed to persist cache entry", "key", key, "error", err)
	}
}

// Size returns the number of in-memory entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
