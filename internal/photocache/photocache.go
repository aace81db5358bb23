// Package photocache holds the latest photos for every feed.
package photocache

import (
	"sync"

	"github.com/samber/lo"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
)

// Snapshot is a point-in-time copy of the cache.
type Snapshot struct {
	Photos []domain.Photo
	Feeds  int
}

// Cache maps a feed id to the photos of its last successful refresh.
// Each entry is replaced wholesale; entries are never removed.
type Cache struct {
	mu    sync.RWMutex
	feeds map[string][]domain.Photo
	order []string // feed ids in first-insert order
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{feeds: make(map[string][]domain.Photo)}
}

// Replace stores photos as the entry for feedID. Invalid photos are dropped
// and the slice is copied, so the caller may reuse it.
func (c *Cache) Replace(feedID string, photos []domain.Photo) {
	valid := lo.Filter(photos, func(p domain.Photo, _ int) bool { return p.Valid() })

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.feeds[feedID]; !ok {
		c.order = append(c.order, feedID)
	}
	c.feeds[feedID] = valid
}

// Snapshot returns every photo, feed by feed in insertion order and item
// order within a feed, plus the number of feeds present.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, photos := range c.feeds {
		total += len(photos)
	}
	out := make([]domain.Photo, 0, total)
	for _, id := range c.order {
		out = append(out, c.feeds[id]...)
	}
	return Snapshot{Photos: out, Feeds: len(c.feeds)}
}

// Counts returns the number of feeds present and the total number of photos.
func (c *Cache) Counts() (feeds, photos int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.feeds {
		photos += len(p)
	}
	return len(c.feeds), photos
}

// Status reports Counts in its JSON shape.
func (c *Cache) Status() domain.Status {
	feeds, photos := c.Counts()
	return domain.Status{Feeds: feeds, Photos: photos}
}

// Feed returns a copy of one feed's photos and whether the feed is present.
func (c *Cache) Feed(feedID string) ([]domain.Photo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	photos, ok := c.feeds[feedID]
	if !ok {
		return nil, false
	}
	return append([]domain.Photo(nil), photos...), true
}
