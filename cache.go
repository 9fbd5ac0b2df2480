package mdvserve

import (
	"context"
	"sync"
	"time"

	"github.com/ambigenius/mdvserve/contents"
)

// PostCache is an in-memory TTL cache of the full "All" section. Section
// views are filtered from the cached slice, so one load serves every
// section until the TTL expires or a write invalidates it.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	fetched time.Time
	ttl     time.Duration
	client  *contents.Client
}

// NewPostCache creates a PostCache backed by the given contents client.
func NewPostCache(client *contents.Client, ttl time.Duration) *PostCache {
	return &PostCache{client: client, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
// Called after every successful commit or delete.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ensureLoaded returns the cached posts after ensuring freshness. It tries
// a read lock first; only takes a write lock when a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := LoadSection(ctx, c.client, SectionAll)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return c.posts, nil
}

// Posts returns the active posts of one section, sorted by date descending.
func (c *PostCache) Posts(ctx context.Context, section string) ([]Post, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if section == SectionAll {
		return posts, nil
	}
	var filtered []Post
	for _, p := range posts {
		if string(p.Type) == section {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
