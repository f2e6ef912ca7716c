package template

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds compiled templates keyed by template identity, with the
// content hash deciding freshness: saving new content under the same ID
// replaces the stale entry on the next Get. Callers construct one and pass
// it where needed; there is no package-level instance.
//
// Hits touch only the LRU bookkeeping; the compiled trees themselves are
// immutable and shared between concurrent renders without locking.
// Concurrent misses for the same ID and content collapse into a single
// compile via singleflight; re-compiling is idempotent, so this is purely a
// load optimization.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	lru     *list.List
	maxSize int
	group   singleflight.Group
}

type cacheEntry struct {
	id   string
	hash string
	tmpl *Template
	elem *list.Element
}

// DefaultCacheSize bounds the cache when callers pass a non-positive size.
const DefaultCacheSize = 512

// NewCache creates a compiled-template cache holding at most maxSize entries,
// evicting least recently used.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the compiled form of content for the template identified by
// id, compiling on miss or content change. The second return reports
// whether the result came from cache.
func (c *Cache) Get(id, content string) (*Template, bool, error) {
	hash := contentHash(content)

	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok && entry.hash == hash {
		c.lru.MoveToFront(entry.elem)
		c.mu.Unlock()
		return entry.tmpl, true, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(id+"\x00"+hash, func() (any, error) {
		tmpl, err := Compile(content)
		if err != nil {
			return nil, err
		}
		c.put(id, hash, tmpl)
		return tmpl, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Template), false, nil
}

// Invalidate drops the entry for id, if any.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[id]; ok {
		c.lru.Remove(entry.elem)
		delete(c.entries, id)
	}
}

// Len reports the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) put(id, hash string, tmpl *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[id]; ok {
		entry.hash = hash
		entry.tmpl = tmpl
		c.lru.MoveToFront(entry.elem)
		return
	}

	for c.lru.Len() >= c.maxSize {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		old := oldest.Value.(*cacheEntry)
		delete(c.entries, old.id)
		c.lru.Remove(oldest)
	}

	entry := &cacheEntry{id: id, hash: hash, tmpl: tmpl}
	entry.elem = c.lru.PushFront(entry)
	c.entries[id] = entry
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
