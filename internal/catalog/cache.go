package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Cache is the subset of db.RedisDB used to memoize search results.
type Cache interface {
	GetCache(ctx context.Context, key string, dest interface{}) error
	SetCache(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedLookup serves repeated queries from a cache. Cache errors are logged
// and fall through to the wrapped lookup.
type CachedLookup struct {
	next  Lookup
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   slog.With("component", "catalog_cache"),
	}
}

func cacheKey(query string) string {
	return "catalog:" + strings.ToLower(strings.TrimSpace(query))
}

func (l *CachedLookup) Search(ctx context.Context, query string) ([]Card, error) {
	if len([]rune(strings.TrimSpace(query))) < MinQueryLength {
		return []Card{}, nil
	}

	key := cacheKey(query)
	var cached []Card
	if err := l.cache.GetCache(ctx, key, &cached); err == nil {
		return cached, nil
	}

	cards, err := l.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := l.cache.SetCache(ctx, key, cards, l.ttl); err != nil {
		l.log.Warn("failed to cache catalog results", "query", query, "error", err)
	}
	return cards, nil
}
