// Package cache keeps stored plays in memory so resolving a play by name
// does not hit the play store on every simulation.
package cache

import (
	"context"
	"sync"

	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
)

// PlayCache is a read-through cache in front of a play store.
// Writes go to the store first and drop the cached list.
type PlayCache struct {
	m      sync.Mutex
	store  storage.PlayStore
	plays  []core.SavedPlay
	loaded bool

	Hits   SafeCounter
	Misses SafeCounter
}

var _ storage.PlayStore = (*PlayCache)(nil)

func NewPlayCache(store storage.PlayStore) *PlayCache {
	return &PlayCache{store: store}
}

// Store returns the wrapped play store.
func (c *PlayCache) Store() storage.PlayStore {
	return c.store
}

func (c *PlayCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.plays = nil
	c.loaded = false
}

func (c *PlayCache) LoadPlays(ctx context.Context) ([]core.SavedPlay, error) {
	c.m.Lock()
	defer c.m.Unlock()

	if !c.loaded {
		c.Misses.Inc()
		plays, err := c.store.LoadPlays(ctx)
		if err != nil {
			return nil, err
		}
		c.plays = plays
		c.loaded = true
	} else {
		c.Hits.Inc()
	}

	out := make([]core.SavedPlay, len(c.plays))
	for i, p := range c.plays {
		out[i] = core.SavedPlay{Name: p.Name, Routes: p.Routes.Clone()}
	}
	return out, nil
}

func (c *PlayCache) SavePlay(ctx context.Context, play core.SavedPlay) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.loaded = false
	c.plays = nil
	return c.store.SavePlay(ctx, play)
}

func (c *PlayCache) DeletePlay(ctx context.Context, name string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.loaded = false
	c.plays = nil
	return c.store.DeletePlay(ctx, name)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
