package feature

import lru "github.com/hashicorp/golang-lru/v2"

// CachedClassificator wraps a Classificator with a bounded LRU cache of
// resolved type indices. Classificator.Resolve is an external call (the
// catalogue is explicitly out of scope, spec.md §1) and a tile's
// feature stream tends to repeat a small set of type indices many
// times, so caching avoids re-resolving the same index per feature.
type CachedClassificator struct {
	inner Classificator
	cache *lru.Cache[uint32, cachedEntry]
}

type cachedEntry struct {
	id TypeID
	ok bool
}

// NewCachedClassificator wraps inner with an LRU cache holding up to
// size resolved entries. size <= 0 selects a small default, generous
// enough for a single container's type catalogue.
func NewCachedClassificator(inner Classificator, size int) *CachedClassificator {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[uint32, cachedEntry](size)
	if err != nil {
		// Only returned for a non-positive size, which is excluded above.
		panic(err)
	}
	return &CachedClassificator{inner: inner, cache: cache}
}

func (c *CachedClassificator) Resolve(typeIndex uint32) (TypeID, bool) {
	if entry, ok := c.cache.Get(typeIndex); ok {
		return entry.id, entry.ok
	}
	id, ok := c.inner.Resolve(typeIndex)
	c.cache.Add(typeIndex, cachedEntry{id: id, ok: ok})
	return id, ok
}
