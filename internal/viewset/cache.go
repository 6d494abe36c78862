package viewset

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"holoquilt/internal/imageio"
)

// Cache is a concurrency-safe cache of decoded views. An entry is reloaded
// when the file's modification time or size changes.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img     *image.NRGBA
	modTime time.Time
	size    int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]*cacheEntry)}
}

// Load returns the decoded image at path, from the cache while the file is
// unchanged.
func (c *Cache) Load(path string) (*image.NRGBA, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("viewset: stat %s: %w", path, err)
	}

	// Fast path: read lock
	c.mu.RLock()
	if e, ok := c.items[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.mu.RUnlock()
		return e.img, nil
	}
	c.mu.RUnlock()

	// Slow path: decode outside the lock
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[path] = &cacheEntry{img: img, modTime: info.ModTime(), size: info.Size()}
	c.mu.Unlock()

	return img, nil
}

// Invalidate drops path from the cache.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.items, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
