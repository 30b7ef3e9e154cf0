package zone

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/authdns/internal/dns/domain"
)

// walkCache memoizes recent Find results, keyed by the exact (name, type,
// options) triple. It is the in-memory Zone Finder's "context carried
// across calls" optimization described in DESIGN NOTES §9: a repeated
// lookup for the same question (common when the resolver re-queries a name
// it just walked, e.g. the apex NS/SOA fetch of §4.4.3) skips the tree walk
// entirely. It never changes Find's result, only its cost.
type walkCache struct {
	cache *lru.Cache[cacheKey, domain.FindResult]
}

type cacheKey struct {
	name    string
	rrtype  domain.RRType
	options domain.FindOptions
}

func newWalkCache(size int) *walkCache {
	c, err := lru.New[cacheKey, domain.FindResult](size)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens with the constant callers in this package.
		panic(err)
	}
	return &walkCache{cache: c}
}

func (w *walkCache) get(name domain.Name, rrtype domain.RRType, options domain.FindOptions) (domain.FindResult, bool) {
	return w.cache.Get(cacheKey{name: name.String(), rrtype: rrtype, options: options})
}

func (w *walkCache) put(name domain.Name, rrtype domain.RRType, options domain.FindOptions, res domain.FindResult) {
	w.cache.Add(cacheKey{name: name.String(), rrtype: rrtype, options: options}, res)
}
