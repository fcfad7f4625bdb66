package ml

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/propedge/internal/models"
)

// CacheKey identifies an evaluation by all of its inputs
type CacheKey struct {
	CandidateID string
	History     string
	Settings    string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return k.CandidateID + ":" + k.History + ":" + k.Settings
}

// NewCacheKey fingerprints a candidate, its history and the settings that
// influence evaluation. Any change to an input yields a different key.
func NewCacheKey(c models.Candidate, history models.History, settings ...any) CacheKey {
	h := sha256.New()
	var buf [8]byte
	for _, o := range history {
		binary.LittleEndian.PutUint64(buf[:], uint64(o.Date.UnixNano()))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(o.Value))
		h.Write(buf[:])
	}
	historyHash := hex.EncodeToString(h.Sum(nil))

	s := sha256.New()
	for _, v := range settings {
		b, _ := json.Marshal(v)
		s.Write(b)
	}

	return CacheKey{
		CandidateID: c.StableID().String(),
		History:     historyHash[:16],
		Settings:    hex.EncodeToString(s.Sum(nil))[:16],
	}
}

// ResultCache memoises evaluation results. Entries are keyed by a fingerprint
// of every input, so a hit is always identical to a fresh evaluation.
type ResultCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewResultCache creates a new result cache
func NewResultCache(ttl time.Duration, maxSize int) *ResultCache {
	return &ResultCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached result
func (rc *ResultCache) Get(ctx context.Context, key CacheKey) (models.PredictionResult, bool) {
	if v, found := rc.cache.Get(key.String()); found {
		if res, ok := v.(models.PredictionResult); ok {
			rc.hitCount.Add(1)
			rc.updateMetrics()
			return res, true
		}
	}
	rc.missCount.Add(1)
	rc.updateMetrics()
	return models.PredictionResult{}, false
}

// Set stores a result. When full, expired entries are purged first and the
// write is dropped if the cache is still full.
func (rc *ResultCache) Set(ctx context.Context, key CacheKey, result models.PredictionResult) {
	if rc.maxSize > 0 && rc.cache.ItemCount() >= rc.maxSize {
		rc.cache.DeleteExpired()
		if rc.cache.ItemCount() >= rc.maxSize {
			return
		}
	}
	rc.cache.Set(key.String(), result, rc.ttl)
}

// Clear flushes the entire cache
func (rc *ResultCache) Clear() {
	rc.cache.Flush()
	rc.hitCount.Store(0)
	rc.missCount.Store(0)
}

// Stats returns cache statistics
func (rc *ResultCache) Stats() (hits, misses uint64, ratio float64) {
	hits = rc.hitCount.Load()
	misses = rc.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (rc *ResultCache) updateMetrics() {
	_, _, ratio := rc.Stats()
	MLCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (rc *ResultCache) ItemCount() int {
	return rc.cache.ItemCount()
}
