package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/models"
)

var sunnyMadrid = models.WeatherData{
	Temperature: 27,
	Condition:   "Clear",
	Humidity:    35,
	WindSpeed:   10,
	Location:    "Madrid, ES",
	Climate:     models.ClimateHot,
}

func TestWeatherCacheHitAndClear(t *testing.T) {
	ctx := context.Background()
	weatherCache, err := NewDefaultWeatherCache()
	require.NoError(t, err)

	_, ok := weatherCache.Get(ctx, 40.4168, -3.7038)
	assert.False(t, ok)

	weatherCache.Set(ctx, 40.4168, -3.7038, sunnyMadrid)
	cached, ok := weatherCache.Get(ctx, 40.4168, -3.7038)
	require.True(t, ok)
	assert.Equal(t, sunnyMadrid, *cached)

	require.NoError(t, weatherCache.Clear(ctx))
	_, ok = weatherCache.Get(ctx, 40.4168, -3.7038)
	assert.False(t, ok)
}

func TestWeatherCacheExpires(t *testing.T) {
	ctx := context.Background()
	weatherCache, err := NewWeatherCache(50*time.Millisecond, WeatherCacheMaxDistanceKm)
	require.NoError(t, err)

	weatherCache.Set(ctx, 40.4168, -3.7038, sunnyMadrid)
	_, ok := weatherCache.Get(ctx, 40.4168, -3.7038)
	require.True(t, ok)

	time.Sleep(150 * time.Millisecond)
	_, ok = weatherCache.Get(ctx, 40.4168, -3.7038)
	assert.False(t, ok)
}

func TestWeatherCacheProximity(t *testing.T) {
	ctx := context.Background()
	strict, err := NewWeatherCache(WeatherCacheTTL, 0.01)
	require.NoError(t, err)
	relaxed, err := NewDefaultWeatherCache()
	require.NoError(t, err)

	for _, c := range []*WeatherCache{strict, relaxed} {
		c.Set(ctx, 40.4168, -3.7038, sunnyMadrid)
	}

	// same rounded key, roughly half a kilometre away
	_, ok := strict.Get(ctx, 40.4210, -3.7010)
	assert.False(t, ok)
	_, ok = relaxed.Get(ctx, 40.4210, -3.7010)
	assert.True(t, ok)

	_, ok = relaxed.Get(ctx, 41.3874, 2.1686)
	assert.False(t, ok)
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(40.4168, -3.7038, 40.4168, -3.7038), 1e-9)
	assert.InDelta(t, 505, HaversineKm(40.4168, -3.7038, 41.3874, 2.1686), 5)
	assert.InDelta(t, HaversineKm(1, 2, 3, 4), HaversineKm(3, 4, 1, 2), 1e-9)
}
