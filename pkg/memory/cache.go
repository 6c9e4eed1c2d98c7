package memory

import (
	"context"
	"sync"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
)

// Cache implements fintrack.LocalCache with a map
type Cache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ fintrack.LocalCache = (*Cache)(nil)

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get returns nil, nil for a missing key
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.data[key] = append([]byte(nil), value...)
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}
