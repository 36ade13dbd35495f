package operation

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheKey identifies a cached bound operation by schema version and
// document fingerprint (spec §4.2.6, §5 "a concurrent map keyed by
// (schema_version, document_fingerprint)").
type CacheKey struct {
	SchemaVersion uint64
	Fingerprint   uint64
}

// Cache is the capability the gateway consumes for operation caching
// (spec §6.4 OperationCache: "get(key) -> Option<Arc>; insert(key,
// value)"). Entries are refcounted via CachedOperation so concurrent
// executions of the same document share one bound Operation.
type Cache interface {
	Get(key CacheKey) (*CachedOperation, bool)
	Insert(key CacheKey, op *Operation)
}

// CachedOperation is a refcounted handle to a bound Operation shared by
// every concurrent execution of the same document (spec §3.3 lifecycle:
// "Operation arena: created by the binder; shared by all concurrent
// executions of the same document ... dropped when its last executor
// finishes").
type CachedOperation struct {
	Op *Operation

	mu       sync.Mutex
	refcount int
}

// Acquire increments the refcount and returns the cached Operation.
func (c *CachedOperation) Acquire() *Operation {
	c.mu.Lock()
	c.refcount++
	c.mu.Unlock()
	return c.Op
}

// Release decrements the refcount; it is the caller's responsibility to
// evict the entry from the owning Cache once Release brings it to zero
// and eviction is desired (the LRU cache below evicts by capacity, not
// by refcount, since holding a stale entry costs only memory, not
// correctness — the schema it was bound against is retained separately).
func (c *CachedOperation) Release() {
	c.mu.Lock()
	if c.refcount > 0 {
		c.refcount--
	}
	c.mu.Unlock()
}

// LRUCache is the default Cache implementation: an LRU map keyed by
// (schema_version, fingerprint), with the capacity passed to NewLRUCache
// (gatewayhttp.New uses a fixed 1024; spec §6.5 is silent on an exact
// bound, and no configuration option sets it; a fixed capacity
// LRU is the standard shape for this capability across the pack —
// volaticloud uses the same golang-lru/v2 package for its resolver
// result cache).
type LRUCache struct {
	inner *lru.Cache[CacheKey, *CachedOperation]
}

// NewLRUCache builds a capacity-bounded cache. size must be positive.
func NewLRUCache(size int) (*LRUCache, error) {
	inner, err := lru.New[CacheKey, *CachedOperation](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{inner: inner}, nil
}

func (c *LRUCache) Get(key CacheKey) (*CachedOperation, bool) {
	entry, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	return entry, true
}

func (c *LRUCache) Insert(key CacheKey, op *Operation) {
	c.inner.Add(key, &CachedOperation{Op: op})
}
