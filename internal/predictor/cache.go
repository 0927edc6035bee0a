// Package predictor provides caching for rider predictions.
package predictor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/apex-predict/internal/models"
)

// CacheKey uniquely identifies one rider's scored prediction for a race and
// a model version. A model redeploy naturally invalidates old entries since
// the version participates in the key.
type CacheKey struct {
	RaceID       uuid.UUID
	RiderID      uuid.UUID
	ModelVersion string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.RaceID, k.RiderID, k.ModelVersion)
}

// ScoreCache provides in-memory caching for per-rider predictions between
// repeated bundle requests for the same race.
type ScoreCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewScoreCache creates a new prediction cache
func NewScoreCache(ttl time.Duration, maxSize int) *ScoreCache {
	return &ScoreCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached rider prediction, or nil on a miss.
func (sc *ScoreCache) Get(key CacheKey) *models.RiderPrediction {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if result, found := sc.cache.Get(key.String()); found {
		if pred, ok := result.(*models.RiderPrediction); ok {
			sc.hitCount++
			sc.updateMetrics()
			return pred
		}
	}

	sc.missCount++
	sc.updateMetrics()
	return nil
}

// Set stores a rider prediction. Failed slots are not cached so transient
// errors do not stick for a whole TTL.
func (sc *ScoreCache) Set(key CacheKey, prediction *models.RiderPrediction) {
	if prediction == nil || prediction.Failed() {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.cache.ItemCount() >= sc.maxSize {
		sc.cache.DeleteExpired()
	}

	sc.cache.Set(key.String(), prediction, sc.ttl)
}

// InvalidateRace removes all cache entries for one race, used when fresh
// current-race laps arrive.
func (sc *ScoreCache) InvalidateRace(raceID uuid.UUID) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	prefix := raceID.String() + ":"
	for k := range sc.cache.Items() {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			sc.cache.Delete(k)
		}
	}
}

// Clear flushes the entire cache
func (sc *ScoreCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.cache.Flush()
	sc.hitCount = 0
	sc.missCount = 0
}

// Stats returns cache statistics
func (sc *ScoreCache) Stats() (hits, misses uint64, ratio float64) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	hits = sc.hitCount
	misses = sc.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (sc *ScoreCache) ItemCount() int {
	return sc.cache.ItemCount()
}

func (sc *ScoreCache) updateMetrics() {
	total := sc.hitCount + sc.missCount
	if total > 0 {
		ScoreCacheHitRatio.Set(float64(sc.hitCount) / float64(total))
	}
}
