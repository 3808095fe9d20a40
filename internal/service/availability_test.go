package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is a map-backed AvailabilityCache for tests.
type memoryCache struct {
	entries map[string][]byte
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.sets++
	return nil
}

func TestSlotsForDateSummaries(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db, nil, 0, time.UTC, &testLogger)
	slot := seedSlot(t, db, 3)
	booked := seedClient(t, db, 5)
	waiting := seedClient(t, db, 5)
	seedBooking(t, db, booked, slot)
	seedWaitlisted(t, db, waiting, slot)

	result, err := svc.SlotsForDate(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, slot.ID, result[0].Slot.ID)
	assert.Equal(t, 1, result[0].Booked)
	assert.Equal(t, 2, result[0].SpotsLeft)
	assert.Equal(t, 1, result[0].WaitlistDepth)
}

func TestSlotsForDateBadDate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db, nil, 0, time.UTC, &testLogger)

	_, err := svc.SlotsForDate(context.Background(), "not-a-date")
	assert.Error(t, err)
}

func TestSlotsForDateServesFromCache(t *testing.T) {
	db := newTestDB(t)
	cache := newMemoryCache()
	svc := NewAvailabilityService(db, cache, 30*time.Second, time.UTC, &testLogger)
	slot := seedSlot(t, db, 3)

	first, err := svc.SlotsForDate(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	// A booking lands after the summary was cached.
	client := seedClient(t, db, 5)
	seedBooking(t, db, client, slot)

	second, err := svc.SlotsForDate(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 0, second[0].Booked, "cached summary should be returned as-is")
	assert.Equal(t, 1, cache.sets, "cache hit must not rewrite the entry")
}
