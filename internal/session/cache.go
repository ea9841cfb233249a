package session

import (
	"slices"
	"sync"
	"time"

	"github.com/signalsfoundry/comms-inspector/core"
)

const defaultFrameCacheTTL = 5 * time.Minute

// frameKey identifies a rendered frame within one session.
type frameKey struct {
	mode core.RenderMode
	ts   float64
}

type frameEntry struct {
	frame   core.Frame
	updated time.Time
}

// FrameCache caches rendered frames per render mode and timestamp so that
// scrubbing back and forth over the same timestamps skips re-aggregation.
type FrameCache struct {
	mu       sync.RWMutex
	frames   map[frameKey]frameEntry
	ttl      time.Duration
	gen      uint64
	hits     int64
	misses   int64
	invalids int64
}

// NewFrameCache creates a cache with the provided TTL; zero uses a default.
func NewFrameCache(ttl time.Duration) *FrameCache {
	if ttl <= 0 {
		ttl = defaultFrameCacheTTL
	}
	return &FrameCache{
		frames: make(map[frameKey]frameEntry),
		ttl:    ttl,
	}
}

// Generation counts InvalidateAll calls. Frames built from a view read at
// one generation are only stored while that generation is current.
func (c *FrameCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Get returns the frame cached for mode and ts unless it has expired.
func (c *FrameCache) Get(mode core.RenderMode, ts float64) (core.Frame, bool) {
	if c == nil {
		return core.Frame{}, false
	}
	c.mu.RLock()
	entry, ok := c.frames[frameKey{mode, ts}]
	c.mu.RUnlock()
	if !ok || time.Since(entry.updated) > c.ttl {
		c.record(false)
		return core.Frame{}, false
	}
	c.record(true)
	return cloneFrame(entry.frame), true
}

// Put stores f if gen is still the current generation and reports whether
// it did.
func (c *FrameCache) Put(f core.Frame, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.frames[frameKey{f.Mode, f.Timestamp}] = frameEntry{frame: cloneFrame(f), updated: time.Now()}
	return true
}

// InvalidateAll drops every cached frame and starts a new generation.
func (c *FrameCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.frames = make(map[frameKey]frameEntry)
	c.gen++
	c.invalids++
	c.mu.Unlock()
}

// Len returns the number of cached frames, expired ones included.
func (c *FrameCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Stats returns the hit, miss and invalidation counters.
func (c *FrameCache) Stats() (hits, misses, invalids int64) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.RLock()
	hits, misses, invalids = c.hits, c.misses, c.invalids
	c.mu.RUnlock()
	return
}

// HitRatio returns hits over lookups, or 0 before any lookup.
func (c *FrameCache) HitRatio() float64 {
	hits, misses, _ := c.Stats()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func (c *FrameCache) record(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}

func cloneFrame(f core.Frame) core.Frame {
	f.Transmissions = slices.Clone(f.Transmissions)
	f.Internal = slices.Clone(f.Internal)
	return f
}
