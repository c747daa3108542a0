package events

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"linkfolio/internal/pages"
)

const (
	slugCacheSize = 4096
	slugCacheTTL  = 5 * time.Minute
)

var (
	slugCache     *expirable.LRU[string, uint]
	slugCacheOnce sync.Once
)

func getSlugCache() *expirable.LRU[string, uint] {
	slugCacheOnce.Do(func() {
		slugCache = expirable.NewLRU[string, uint](slugCacheSize, nil, slugCacheTTL)
	})
	return slugCache
}

// resolvePageID maps a slug to its page id, caching hits so the ingestion hot
// path does not touch the database on every beacon. Misses are not cached;
// a just-published page must start collecting immediately.
func resolvePageID(db *gorm.DB, slug string) (uint, error) {
	normalized := pages.NormalizeSlug(slug)
	cache := getSlugCache()

	if id, ok := cache.Get(normalized); ok {
		return id, nil
	}

	id, err := pages.GetPageOrNotFound(db, normalized)
	if err != nil {
		return 0, err
	}

	cache.Add(normalized, id)
	return id, nil
}

// ForgetSlug drops a slug from the resolver cache. Called when a page is
// deleted so stale beacons stop resolving within the cache TTL.
func ForgetSlug(slug string) {
	getSlugCache().Remove(pages.NormalizeSlug(slug))
}
