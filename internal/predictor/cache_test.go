package predictor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/apex-predict/internal/models"
)

func cachedPrediction(riderID uuid.UUID) *models.RiderPrediction {
	return &models.RiderPrediction{
		RiderID: riderID,
		Podium:  &models.PodiumDistribution{Win: 0.2, Podium: 0.3, OutsidePodium: 0.5},
	}
}

func TestScoreCacheSetAndGet(t *testing.T) {
	cache := NewScoreCache(time.Minute, 100)
	key := CacheKey{RaceID: uuid.New(), RiderID: uuid.New(), ModelVersion: "v1"}

	assert.Nil(t, cache.Get(key))

	pred := cachedPrediction(key.RiderID)
	cache.Set(key, pred)

	got := cache.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, pred, got)
}

func TestScoreCacheSkipsFailedPredictions(t *testing.T) {
	cache := NewScoreCache(time.Minute, 100)
	key := CacheKey{RaceID: uuid.New(), RiderID: uuid.New(), ModelVersion: "v1"}

	cache.Set(key, &models.RiderPrediction{RiderID: key.RiderID, ErrorReason: "insufficient history"})
	assert.Nil(t, cache.Get(key))

	cache.Set(key, nil)
	assert.Nil(t, cache.Get(key))
}

func TestScoreCacheModelVersionPartitionsKeys(t *testing.T) {
	cache := NewScoreCache(time.Minute, 100)
	raceID := uuid.New()
	riderID := uuid.New()

	oldKey := CacheKey{RaceID: raceID, RiderID: riderID, ModelVersion: "2026.07.1"}
	newKey := CacheKey{RaceID: raceID, RiderID: riderID, ModelVersion: "2026.08.1"}

	cache.Set(oldKey, cachedPrediction(riderID))
	assert.NotNil(t, cache.Get(oldKey))
	assert.Nil(t, cache.Get(newKey))
}

func TestScoreCacheInvalidateRace(t *testing.T) {
	cache := NewScoreCache(time.Minute, 100)
	raceA := uuid.New()
	raceB := uuid.New()

	keyA := CacheKey{RaceID: raceA, RiderID: uuid.New(), ModelVersion: "v1"}
	keyB := CacheKey{RaceID: raceB, RiderID: uuid.New(), ModelVersion: "v1"}
	cache.Set(keyA, cachedPrediction(keyA.RiderID))
	cache.Set(keyB, cachedPrediction(keyB.RiderID))

	cache.InvalidateRace(raceA)

	assert.Nil(t, cache.Get(keyA))
	assert.NotNil(t, cache.Get(keyB))
}

func TestScoreCacheStats(t *testing.T) {
	cache := NewScoreCache(time.Minute, 100)
	key := CacheKey{RaceID: uuid.New(), RiderID: uuid.New(), ModelVersion: "v1"}

	cache.Get(key)
	cache.Set(key, cachedPrediction(key.RiderID))
	cache.Get(key)

	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 0.5, ratio, 1e-9)
}

func TestScoreCacheClear(t *testing.T) {
	cache := NewScoreCache(time.Minute, 100)
	key := CacheKey{RaceID: uuid.New(), RiderID: uuid.New(), ModelVersion: "v1"}

	cache.Set(key, cachedPrediction(key.RiderID))
	require.Equal(t, 1, cache.ItemCount())

	cache.Clear()
	assert.Equal(t, 0, cache.ItemCount())
	assert.Nil(t, cache.Get(key))
}
