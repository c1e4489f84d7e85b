package search

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	densityCacheSize = 512
	densityCacheTTL  = 5 * time.Minute
	densityKeyLen    = 50
)

// Queries containing one of these tend to match broad, low-density
// content.
var broadQueryWords = []string{"what", "how", "general", "about", "help", "information"}

// DensityEstimator guesses how semantically dense the content matching a
// query is likely to be, in [0,1]. Estimates are advisory heuristics and
// cached with a short TTL; the cache is cache-aside, so two calls racing
// on the same key at most recompute redundantly.
type DensityEstimator struct {
	cache *expirable.LRU[string, float64]
}

// NewDensityEstimator returns an estimator with its own cache. One
// instance is meant to be shared process-wide and is safe for concurrent
// use.
func NewDensityEstimator() *DensityEstimator {
	return &DensityEstimator{
		cache: expirable.NewLRU[string, float64](densityCacheSize, nil, densityCacheTTL),
	}
}

// Estimate returns the cached or freshly computed density estimate for
// query.
func (d *DensityEstimator) Estimate(query string) float64 {
	key := densityKey(query)
	if v, ok := d.cache.Get(key); ok {
		return v
	}
	v := estimateDensity(query)
	d.cache.Add(key, v)
	return v
}

// CacheLen reports the number of live cache entries, for the calculator's
// performance snapshot.
func (d *DensityEstimator) CacheLen() int {
	return d.cache.Len()
}

// densityKey truncates the normalized query to a fixed-length prefix so
// near-identical long queries share one entry.
func densityKey(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))
	runes := []rune(lower)
	if len(runes) > densityKeyLen {
		runes = runes[:densityKeyLen]
	}
	return string(runes)
}

func estimateDensity(query string) float64 {
	lower := strings.ToLower(query)
	if strings.Contains(lower, "specific") || len(query) > 80 {
		return 0.3
	}
	for _, w := range broadQueryWords {
		if strings.Contains(lower, w) {
			return 0.7
		}
	}
	return 0.5
}
