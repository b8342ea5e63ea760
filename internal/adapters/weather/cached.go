package weather

import (
	"context"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"time"
)

// CachedZipClient serves repeated zip lookups from a WeatherCache. Cache
// failures fall through to the wrapped client; only successes are stored.
type CachedZipClient struct {
	next  ports.ZipWeatherClient
	cache ports.WeatherCache
	ttl   time.Duration
}

func NewCachedZipClient(next ports.ZipWeatherClient, cache ports.WeatherCache, ttl time.Duration) *CachedZipClient {
	return &CachedZipClient{next: next, cache: cache, ttl: ttl}
}

func (c *CachedZipClient) WeatherByZip(ctx context.Context, zip string) (ports.Conditions, error) {
	log := logging.FromContext(ctx)

	cond, ok, err := c.cache.Get(ctx, zip)
	switch {
	case err != nil:
		obs.WeatherCacheLookups.WithLabelValues("error").Inc()
		log.Warn("weather cache read failed", "zip", zip, "err", err)
	case ok:
		obs.WeatherCacheLookups.WithLabelValues("hit").Inc()
		return cond, nil
	default:
		obs.WeatherCacheLookups.WithLabelValues("miss").Inc()
	}

	cond, err = c.next.WeatherByZip(ctx, zip)
	if err != nil {
		return ports.Conditions{}, err
	}

	if err := c.cache.Set(ctx, zip, cond, c.ttl); err != nil {
		log.Warn("weather cache write failed", "zip", zip, "err", err)
	}
	return cond, nil
}
