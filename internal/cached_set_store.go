package internal

import (
	"context"
	"sync"
	"time"

	"github.com/lychee-technology/attrschema"
)

type cachedSet struct {
	set      *attrschema.AttributeSet
	loadedAt time.Time
}

// CachedAttributeSetStore memoises GetAttributeSet results of another store
// for ttl. A zero ttl keeps entries until Invalidate. Misses and errors are
// never cached.
type CachedAttributeSetStore struct {
	next attrschema.AttributeSetStore
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	cache map[int64]cachedSet
}

var _ attrschema.AttributeSetStore = (*CachedAttributeSetStore)(nil)

// NewCachedAttributeSetStore wraps next.
func NewCachedAttributeSetStore(next attrschema.AttributeSetStore, ttl time.Duration) *CachedAttributeSetStore {
	return &CachedAttributeSetStore{
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[int64]cachedSet),
	}
}

// GetAttributeSet returns a copy of the cached set, loading it on a miss.
func (c *CachedAttributeSetStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	c.mu.RLock()
	entry, ok := c.cache[id]
	c.mu.RUnlock()

	if ok && (c.ttl == 0 || c.now().Sub(entry.loadedAt) < c.ttl) {
		EmitSetCacheLookup(ctx, true)
		return entry.set.Clone(), nil
	}
	EmitSetCacheLookup(ctx, false)

	start := time.Now()
	set, err := c.next.GetAttributeSet(ctx, id)
	if err != nil {
		return nil, err
	}
	EmitSetLoadLatency(ctx, time.Since(start).Milliseconds())

	c.mu.Lock()
	c.cache[id] = cachedSet{set: set.Clone(), loadedAt: c.now()}
	c.mu.Unlock()

	return set, nil
}

// ListAttributeSets always reads through to the wrapped store.
func (c *CachedAttributeSetStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	return c.next.ListAttributeSets(ctx)
}

// Invalidate drops one cached set, or all of them when no id is given.
func (c *CachedAttributeSetStore) Invalidate(ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		c.cache = make(map[int64]cachedSet)
		return
	}
	for _, id := range ids {
		delete(c.cache, id)
	}
}
