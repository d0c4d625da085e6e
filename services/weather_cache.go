package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"wardrobeapi/models"
)

const (
	WeatherCacheTTL = 10 * time.Minute
	// cached forecasts further than this from the requested point are ignored
	WeatherCacheMaxDistanceKm = 1.0

	earthRadiusKm = 6371.0
)

type cachedForecast struct {
	Forecast models.WeatherData
	Coords   models.Coordinates
}

// WeatherCache keeps forecasts keyed by coordinates rounded to two decimals.
// It is safe for concurrent use.
type WeatherCache struct {
	cache         *cache.Cache[*cachedForecast]
	ristretto     *ristretto.Cache
	ttl           time.Duration
	maxDistanceKm float64
}

func NewWeatherCache(ttl time.Duration, maxDistanceKm float64) (*WeatherCache, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &WeatherCache{
		cache:         cache.New[*cachedForecast](ristretto_store.NewRistretto(ristrettoCache)),
		ristretto:     ristrettoCache,
		ttl:           ttl,
		maxDistanceKm: maxDistanceKm,
	}, nil
}

func NewDefaultWeatherCache() (*WeatherCache, error) {
	return NewWeatherCache(WeatherCacheTTL, WeatherCacheMaxDistanceKm)
}

func weatherCacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.2f,%.2f", lat, lon)
}

func (c *WeatherCache) Get(ctx context.Context, lat, lon float64) (*models.WeatherData, bool) {
	entry, err := c.cache.Get(ctx, weatherCacheKey(lat, lon))
	if err != nil || entry == nil {
		return nil, false
	}
	if HaversineKm(lat, lon, entry.Coords.Latitude, entry.Coords.Longitude) > c.maxDistanceKm {
		return nil, false
	}
	forecast := entry.Forecast
	return &forecast, true
}

func (c *WeatherCache) Set(ctx context.Context, lat, lon float64, forecast models.WeatherData) {
	entry := &cachedForecast{
		Forecast: forecast,
		Coords:   models.Coordinates{Latitude: lat, Longitude: lon},
	}
	err := c.cache.Set(ctx, weatherCacheKey(lat, lon), entry, store.WithExpiration(c.ttl), store.WithCost(1))
	if err != nil {
		log.Printf("[Weather] Failed to cache forecast for %.2f,%.2f: %v\n", lat, lon, err)
		return
	}
	// ristretto applies writes asynchronously
	c.ristretto.Wait()
}

func (c *WeatherCache) Clear(ctx context.Context) error {
	if err := c.cache.Clear(ctx); err != nil {
		return err
	}
	log.Println("[Weather] Cache cleared")
	return nil
}

// HaversineKm is the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
