package bundle

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryClips is an in-memory clip store bounded by capacity. A full store
// refuses new clips; nothing is evicted.
type MemoryClips struct {
	capacity int64
	size     int64

	items map[string][]byte

	mu sync.Mutex

	stats Stats
}

// NewMemoryClips creates a clip store holding at most capacity bytes.
func NewMemoryClips(capacity int64) *MemoryClips {
	return &MemoryClips{
		capacity: capacity,
		items:    make(map[string][]byte),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a clip.
func (c *MemoryClips) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return value, true
}

// Put stores a clip, replacing any clip under the same key.
func (c *MemoryClips) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))
	if valueSize > c.capacity {
		return fmt.Errorf("%w: %d bytes", ErrItemTooLarge, valueSize)
	}

	existing := int64(len(c.items[key]))
	if c.size-existing+valueSize > c.capacity {
		c.stats.Rejected++
		return fmt.Errorf("%w: %d of %d bytes used, clip needs %d",
			ErrStoreFull, c.size, c.capacity, valueSize)
	}

	c.items[key] = value
	c.size += valueSize - existing
	return nil
}

// Delete removes a clip. Missing keys are not an error.
func (c *MemoryClips) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.items[key]; ok {
		delete(c.items, key)
		c.size -= int64(len(value))
	}
	return nil
}

// Contains checks if a clip exists.
func (c *MemoryClips) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Size returns the stored size in bytes.
func (c *MemoryClips) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// Stats returns store statistics.
func (c *MemoryClips) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Close is a no-op.
func (c *MemoryClips) Close() error { return nil }

// MemoryIndex keeps bundle records in a map.
type MemoryIndex struct {
	mu      sync.RWMutex
	bundles map[string]map[int]Bundle
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{bundles: make(map[string]map[int]Bundle)}
}

// Load returns the bundle of a slide.
func (ix *MemoryIndex) Load(ns string, slideID int) (Bundle, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	b, ok := ix.bundles[ns][slideID]
	if !ok {
		return Bundle{}, fmt.Errorf("slide %d in %q: %w", slideID, ns, ErrNotFound)
	}
	return cloneBundle(b), nil
}

// Save stores b, replacing any previous bundle of the slide.
func (ix *MemoryIndex) Save(ns string, b Bundle) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	slides, ok := ix.bundles[ns]
	if !ok {
		slides = make(map[int]Bundle)
		ix.bundles[ns] = slides
	}
	slides[b.SlideID] = cloneBundle(b)
	return nil
}

// Delete removes the bundle of a slide.
func (ix *MemoryIndex) Delete(ns string, slideID int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	delete(ix.bundles[ns], slideID)
	return nil
}

// Slides lists slide ids with a bundle, ascending.
func (ix *MemoryIndex) Slides(ns string) ([]int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]int, 0, len(ix.bundles[ns]))
	for id := range ix.bundles[ns] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Close is a no-op.
func (ix *MemoryIndex) Close() error { return nil }

func cloneBundle(b Bundle) Bundle {
	out := Bundle{SlideID: b.SlideID}
	out.Scripts = append([]ScriptLine(nil), b.Scripts...)
	out.Clips = make([]Clip, len(b.Clips))
	for i, c := range b.Clips {
		c.Audio = nil
		out.Clips[i] = c
	}
	return out
}
