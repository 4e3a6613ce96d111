package jsparse

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/xxh3"
)

// Source extracts references from a file's contents. Both Extractor and
// CachingExtractor satisfy it.
type Source interface {
	ExtractFile(ctx context.Context, path string, src []byte) ([]Reference, error)
}

// ExtractFile implements Source; the path is not needed for parsing
func (e *Extractor) ExtractFile(ctx context.Context, path string, src []byte) ([]Reference, error) {
	return e.Extract(ctx, src)
}

// CacheConfig configures a CachingExtractor
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 4096,
		TTL:        30 * time.Minute,
	}
}

type cacheKey struct {
	path string
	hash xxh3.Uint128
}

type cacheEntry struct {
	refs []Reference
	err  error
}

// CachingExtractor memoizes extraction results by file path and content
// hash. Long-running callers (watch mode) use it so unchanged files are not
// re-parsed between runs.
type CachingExtractor struct {
	inner  *Extractor
	cache  *lru.LRU[cacheKey, cacheEntry]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachingExtractor wraps inner with an expirable LRU cache
func NewCachingExtractor(inner *Extractor, cfg CacheConfig) *CachingExtractor {
	if inner == nil {
		inner = NewExtractor(DefaultOptions())
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	return &CachingExtractor{
		inner: inner,
		cache: lru.NewLRU[cacheKey, cacheEntry](cfg.MaxEntries, nil, cfg.TTL),
	}
}

// ExtractFile implements Source
func (c *CachingExtractor) ExtractFile(ctx context.Context, path string, src []byte) ([]Reference, error) {
	key := cacheKey{path: path, hash: xxh3.Hash128(src)}
	if entry, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return entry.refs, entry.err
	}
	c.misses.Add(1)

	refs, err := c.inner.Extract(ctx, src)
	// Cancellation says nothing about the file itself.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return refs, err
	}
	c.cache.Add(key, cacheEntry{refs: refs, err: err})
	return refs, err
}

// Stats returns the number of cache hits and misses so far
func (c *CachingExtractor) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached files
func (c *CachingExtractor) Len() int {
	return c.cache.Len()
}

// Purge drops every cached entry
func (c *CachingExtractor) Purge() {
	c.cache.Purge()
}
