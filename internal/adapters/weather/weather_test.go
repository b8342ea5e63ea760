package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/ports"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(name string) *httpx.Client {
	return httpx.New(name, httpx.WithPolicy(httpx.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     2,
	}))
}

func zipServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch r.URL.Path {
		case "/weather/10001":
			_, _ = w.Write([]byte(`{"temperatureC": 21.5, "summary": "Sunny", "zip_code": "10001"}`))
		case "/weather/02139":
			// Rate limited once, then served.
			if n == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{"temperatureC": -3, "summary": "Snow", "country": "US", "zip_code": "02139"}`))
		case "/weather/00000":
			w.WriteHeader(http.StatusNotFound)
		case "/weather/99999":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`invalid API key`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestZipClient(t *testing.T) {
	var calls atomic.Int32
	srv := zipServer(t, &calls)
	z := NewZipClient(fastClient("weather_zip"), srv.URL+"/")

	cond, err := z.WeatherByZip(context.Background(), "10001")
	if err != nil {
		t.Fatalf("WeatherByZip: %v", err)
	}
	if cond.TemperatureC == nil || *cond.TemperatureC != 21.5 || cond.Summary == nil || *cond.Summary != "Sunny" {
		t.Fatalf("cond = %+v", cond)
	}
	if cond.Country != nil {
		t.Fatalf("country should be absent, got %q", *cond.Country)
	}
}

func TestZipClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := zipServer(t, &calls)
	z := NewZipClient(fastClient("weather_zip"), srv.URL)

	cond, err := z.WeatherByZip(context.Background(), "02139")
	if err != nil {
		t.Fatalf("WeatherByZip: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if cond.Country == nil || *cond.Country != "US" {
		t.Fatalf("country = %v", cond.Country)
	}
}

func TestZipClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := zipServer(t, &calls)
	z := NewZipClient(fastClient("weather_zip"), srv.URL)

	if _, err := z.WeatherByZip(context.Background(), "00000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("404 err = %v, want ErrNotFound", err)
	}
	if _, err := z.WeatherByZip(context.Background(), "99999"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("401 err = %v, want ErrNotConfigured", err)
	}
	if _, err := NewZipClient(nil, "").WeatherByZip(context.Background(), "10001"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("missing url err = %v, want ErrNotConfigured", err)
	}
}

func TestOpenMeteo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/v1/forecast" || q.Get("latitude") != "40.71280" || q.Get("current") != "temperature_2m,weather_code" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"current":{"time":"2024-01-01T00:00","temperature_2m":4.2,"weather_code":63}}`))
	}))
	defer srv.Close()

	o := NewOpenMeteo(fastClient("open_meteo"), srv.URL)
	cond, err := o.WeatherAt(context.Background(), domain.Coordinates{Lat: 40.7128, Lon: -74.006})
	if err != nil {
		t.Fatalf("WeatherAt: %v", err)
	}
	if cond.TemperatureC == nil || *cond.TemperatureC != 4.2 {
		t.Fatalf("temperature = %v", cond.TemperatureC)
	}
	if cond.Summary == nil || *cond.Summary != "Moderate rain" {
		t.Fatalf("summary = %v", cond.Summary)
	}
}

type mapCache struct {
	mu   sync.Mutex
	m    map[string]ports.Conditions
	fail bool
}

func (c *mapCache) Get(ctx context.Context, zip string) (ports.Conditions, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return ports.Conditions{}, false, errors.New("cache down")
	}
	v, ok := c.m[zip]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, zip string, cond ports.Conditions, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cache down")
	}
	c.m[zip] = cond
	return nil
}

func TestCachedZipClient(t *testing.T) {
	var calls atomic.Int32
	srv := zipServer(t, &calls)
	inner := NewZipClient(fastClient("weather_zip"), srv.URL)

	cache := &mapCache{m: map[string]ports.Conditions{}}
	c := NewCachedZipClient(inner, cache, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := c.WeatherByZip(context.Background(), "10001"); err != nil {
			t.Fatalf("WeatherByZip #%d: %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls.Load())
	}

	if _, err := c.WeatherByZip(context.Background(), "00000"); err == nil {
		t.Fatalf("expected not found")
	}
	if _, ok := cache.m["00000"]; ok {
		t.Fatalf("failures must not be cached")
	}

	// A broken cache only costs an upstream call.
	cache.fail = true
	if _, err := c.WeatherByZip(context.Background(), "10001"); err != nil {
		t.Fatalf("WeatherByZip with failing cache: %v", err)
	}
}
