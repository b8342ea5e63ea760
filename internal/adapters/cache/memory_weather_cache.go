package cache

import (
	"context"
	"route-weather-service/internal/ports"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryWeatherCache keeps zip weather lookups in process.
type MemoryWeatherCache struct {
	c *gocache.Cache
}

func NewMemoryWeatherCache(defaultTTL time.Duration) *MemoryWeatherCache {
	return &MemoryWeatherCache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *MemoryWeatherCache) Get(ctx context.Context, zip string) (ports.Conditions, bool, error) {
	v, ok := m.c.Get(zip)
	if !ok {
		return ports.Conditions{}, false, nil
	}
	return v.(ports.Conditions), true, nil
}

func (m *MemoryWeatherCache) Set(ctx context.Context, zip string, cond ports.Conditions, ttl time.Duration) error {
	m.c.Set(zip, cond, ttl)
	return nil
}
