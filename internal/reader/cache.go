package reader

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/logcrate/logcrate/internal/segment"
)

// handle is one cached, refcounted segment.ReadSegment. It is closed once
// it has been evicted from the Cache AND no in-flight read still holds a
// reference to it.
type handle struct {
	mu      sync.Mutex
	seg     *segment.ReadSegment
	refs    int
	evicted bool
}

func (h *handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

func (h *handle) release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.evicted && h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.seg.Close()
	}
}

func (h *handle) evict() {
	h.mu.Lock()
	h.evicted = true
	closeNow := h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.seg.Close()
	}
}

// Cache caches open, mmap'd segment.ReadSegment handles across reads, so
// repeated access to the same segment -- the common case for recently
// appended records -- does not reopen and re-mmap the file on every call.
// Safe for concurrent use by multiple Reader goroutines.
type Cache struct {
	dir string
	mu  sync.Mutex
	lru *lru.Cache[uint64, *handle]
}

// NewCache returns a Cache over dir holding at most size open segment
// handles, evicting the least-recently-used one once full.
func NewCache(dir string, size int) *Cache {
	c := &Cache{dir: dir}
	l, _ := lru.NewWithEvict[uint64, *handle](size, func(_ uint64, h *handle) {
		h.evict()
	})
	c.lru = l
	return c
}

// acquire returns a handle for segID mmap'd large enough to cover at least
// minSize bytes, opening and caching it if absent. The returned handle's
// refcount is incremented; callers must call release() exactly once when
// done with it.
//
// gommap maps a file at whatever size it has the instant Map is called
// (the teacher's index.go notes the same constraint: "once they're
// memory-mapped, we can't resize them"). Unlike the teacher's index file,
// a segment can still be the Writer's active segment, growing via plain
// os.File.Write calls that never touch this mapping. A handle cached from
// an earlier, shorter read of the same segment id is therefore stale for
// any offset past its mapped length; acquire reopens and replaces it in
// that case instead of serving a read doomed to a spurious short read.
func (c *Cache) acquire(segID uint64, minSize uint64) (*handle, error) {
	c.mu.Lock()
	if h, ok := c.lru.Get(segID); ok {
		if h.seg.Size() >= minSize {
			h.acquire()
			c.mu.Unlock()
			return h, nil
		}
		// Stale: evict so a remap below replaces it. The handle keeps
		// itself alive for any reader still holding a reference.
		c.lru.Remove(segID)
	}
	c.mu.Unlock()

	seg, err := segment.OpenRead(c.dir, segID)
	if err != nil {
		return nil, err
	}
	h := &handle{seg: seg}
	h.acquire()

	c.mu.Lock()
	if existing, ok := c.lru.Get(segID); ok && existing.seg.Size() >= minSize {
		// Another goroutine already remapped (or opened) a handle
		// that's large enough; use it and discard ours.
		existing.acquire()
		c.mu.Unlock()
		h.release()
		return existing, nil
	}
	c.lru.Add(segID, h)
	c.mu.Unlock()
	return h, nil
}

// Close evicts and closes every cached handle not currently in use, and
// marks the rest to close as soon as their last reader releases them. Call
// once, when the owning crate shuts down; the cache is unusable afterward.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	return nil
}
