package geocode

import (
	"context"
	"fmt"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memo remembers postal codes per coordinate rounded to four decimals
// (about 11m), so repeated routes do not hit rate limited geocoders again.
// Failures are not remembered.
type Memo struct {
	next  ports.PostalResolver
	cache *gocache.Cache
}

func NewMemo(next ports.PostalResolver, ttl time.Duration) *Memo {
	return &Memo{next: next, cache: gocache.New(ttl, 2*ttl)}
}

func (m *Memo) ResolvePostal(ctx context.Context, c domain.Coordinates) (ports.Place, error) {
	key := fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
	if v, ok := m.cache.Get(key); ok {
		obs.GeocodeMemoLookups.WithLabelValues("hit").Inc()
		return v.(ports.Place), nil
	}
	obs.GeocodeMemoLookups.WithLabelValues("miss").Inc()

	place, err := m.next.ResolvePostal(ctx, c)
	if err != nil {
		return ports.Place{}, err
	}
	m.cache.SetDefault(key, place)
	return place, nil
}
