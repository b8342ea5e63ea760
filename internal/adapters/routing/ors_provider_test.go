package routing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twpayne/go-polyline"
)

func testClient(name string) *httpx.Client {
	return httpx.New(name, httpx.WithPolicy(httpx.Policy{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     2,
	}))
}

type memGeocodeCache struct {
	mu   sync.Mutex
	m    map[string]domain.Coordinates
	puts int
}

func (c *memGeocodeCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if v, ok := c.m[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]domain.Coordinates{}
	}
	for k, v := range results {
		c.m[k] = v
	}
	c.puts++
	return nil
}

var (
	nyc    = domain.Coordinates{Lat: 40.7128, Lon: -74.0060}
	hfd    = domain.Coordinates{Lat: 41.7658, Lon: -72.6734}
	boston = domain.Coordinates{Lat: 42.3601, Lon: -71.0589}
)

type fakeORS struct {
	places     map[string]domain.Coordinates
	geocodes   atomic.Int32
	directions atomic.Int32
	lastBody   directionsRequest
	mu         sync.Mutex
	dirStatus  int
	dirBody    string
}

func (f *fakeORS) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodes.Add(1)
		if r.Header.Get("Authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("boundary.country"); got != "US" {
			t.Errorf("boundary.country = %q", got)
		}
		c, ok := f.places[r.URL.Query().Get("text")]
		if !ok {
			_, _ = w.Write([]byte(`{"features":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"features": []any{map[string]any{
				"geometry": map[string]any{"coordinates": []float64{c.Lon, c.Lat}},
			}},
		})
	})
	mux.HandleFunc("/v2/directions/driving-car", func(w http.ResponseWriter, r *http.Request) {
		f.directions.Add(1)
		var body directionsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode directions body: %v", err)
		}
		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()

		if f.dirStatus != 0 {
			w.WriteHeader(f.dirStatus)
			_, _ = w.Write([]byte(f.dirBody))
			return
		}

		// Geometry: each requested coordinate plus a midpoint between neighbours.
		var coords [][]float64
		var wayPoints []int
		for i, c := range body.Coordinates {
			if i > 0 {
				prev := body.Coordinates[i-1]
				coords = append(coords, []float64{(prev[1] + c[1]) / 2, (prev[0] + c[0]) / 2})
			}
			wayPoints = append(wayPoints, len(coords))
			coords = append(coords, []float64{c[1], c[0]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []any{map[string]any{
				"summary":    map[string]any{"distance": 1000.0},
				"geometry":   string(polyline.EncodeCoords(coords)),
				"way_points": wayPoints,
			}},
		})
	})
	return mux
}

func newFakeORS(t *testing.T) (*fakeORS, *httptest.Server) {
	f := &fakeORS{places: map[string]domain.Coordinates{
		"New York, NY": nyc,
		"Hartford, CT": hfd,
		"Boston, MA":   boston,
	}}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return f, srv
}

func newORS(t *testing.T, baseURL, key string, cache *memGeocodeCache) *ORSRouteProvider {
	t.Helper()
	cfg := ORSConfig{APIKey: key, BaseURL: baseURL, Country: "US"}
	var p *ORSRouteProvider
	var err error
	if cache != nil {
		p, err = NewORSRouteProvider(cfg, testClient("ors"), cache)
	} else {
		p, err = NewORSRouteProvider(cfg, testClient("ors"), nil)
	}
	if err != nil {
		t.Fatalf("NewORSRouteProvider: %v", err)
	}
	return p
}

func TestORSPlanRoute(t *testing.T) {
	f, srv := newFakeORS(t)
	p := newORS(t, srv.URL, "test-key", nil)

	addrs := []string{"New York, NY", "Hartford,   CT", "Boston, MA"}
	route, err := p.PlanRoute(context.Background(), addrs, domain.RoutePreference{AvoidHighways: true, AvoidTolls: true})
	if err != nil {
		t.Fatalf("PlanRoute: %v", err)
	}

	if len(route.Polyline) != 5 {
		t.Fatalf("polyline has %d vertices, want 5", len(route.Polyline))
	}
	if len(route.Stops) != 3 {
		t.Fatalf("got %d stops, want 3", len(route.Stops))
	}
	for i, want := range []int{0, 2, 4} {
		if route.Stops[i].VertexIndex != want {
			t.Fatalf("stop %d vertex = %d, want %d", i, route.Stops[i].VertexIndex, want)
		}
		if route.Stops[i].Address != addrs[i] {
			t.Fatalf("stop %d address = %q", i, route.Stops[i].Address)
		}
	}
	if d := domain.HaversineMeters(route.Stops[2].Location, boston); d > 5 {
		t.Fatalf("last stop is %.1fm from Boston", d)
	}

	f.mu.Lock()
	body := f.lastBody
	f.mu.Unlock()
	if body.Options == nil || len(body.Options.AvoidFeatures) != 2 {
		t.Fatalf("avoid features not sent: %+v", body.Options)
	}
	if body.Coordinates[0][0] != nyc.Lon || body.Coordinates[0][1] != nyc.Lat {
		t.Fatalf("coordinates must be [lon, lat], got %v", body.Coordinates[0])
	}
}

func TestORSUsesGeocodeCache(t *testing.T) {
	f, srv := newFakeORS(t)
	cache := &memGeocodeCache{}
	p := newORS(t, srv.URL, "test-key", cache)

	addrs := []string{"New York, NY", "Boston, MA"}
	for i := 0; i < 2; i++ {
		if _, err := p.PlanRoute(context.Background(), addrs, domain.RoutePreference{}); err != nil {
			t.Fatalf("PlanRoute #%d: %v", i, err)
		}
	}

	if got := f.geocodes.Load(); got != 2 {
		t.Fatalf("geocode calls = %d, want 2 (second run served from cache)", got)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}
}

func TestORSUnknownAddress(t *testing.T) {
	f, srv := newFakeORS(t)
	p := newORS(t, srv.URL, "test-key", nil)

	_, err := p.PlanRoute(context.Background(), []string{"New York, NY", "Atlantis"}, domain.RoutePreference{})

	var rre *domain.RouteResolutionError
	if !errors.As(err, &rre) {
		t.Fatalf("err = %v, want RouteResolutionError", err)
	}
	if rre.Address != "Atlantis" {
		t.Fatalf("address = %q, want Atlantis", rre.Address)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err should wrap ErrNotFound: %v", err)
	}
	if f.directions.Load() != 0 {
		t.Fatalf("directions should not be called")
	}
}

func TestORSRejectedKey(t *testing.T) {
	_, srv := newFakeORS(t)
	p := newORS(t, srv.URL, "wrong-key", nil)

	_, err := p.PlanRoute(context.Background(), []string{"New York, NY", "Boston, MA"}, domain.RoutePreference{})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestORSDirectionsNamesFailingPoint(t *testing.T) {
	f, srv := newFakeORS(t)
	f.dirStatus = http.StatusNotFound
	f.dirBody = `{"error":{"code":2010,"message":"Could not find point 1: 41.7658 -72.6734 within a radius of 350.0 meters."}}`
	p := newORS(t, srv.URL, "test-key", nil)

	_, err := p.PlanRoute(context.Background(), []string{"New York, NY", "Hartford, CT", "Boston, MA"}, domain.RoutePreference{})

	var rre *domain.RouteResolutionError
	if !errors.As(err, &rre) {
		t.Fatalf("err = %v, want RouteResolutionError", err)
	}
	if rre.Address != "Hartford, CT" {
		t.Fatalf("address = %q, want Hartford, CT", rre.Address)
	}
	if f.directions.Load() != 1 {
		t.Fatalf("4xx directions error should not be retried, calls = %d", f.directions.Load())
	}
}

func TestORSSamePlaceSkipsDirections(t *testing.T) {
	f, srv := newFakeORS(t)
	p := newORS(t, srv.URL, "test-key", nil)

	route, err := p.PlanRoute(context.Background(), []string{"Boston, MA", "Boston, MA"}, domain.RoutePreference{})
	if err != nil {
		t.Fatalf("PlanRoute: %v", err)
	}
	if len(route.Polyline) != 1 || len(route.Stops) != 2 {
		t.Fatalf("got %d vertices / %d stops, want 1 / 2", len(route.Polyline), len(route.Stops))
	}
	if f.directions.Load() != 0 {
		t.Fatalf("directions called for a single-place route")
	}
	if f.geocodes.Load() != 1 {
		t.Fatalf("duplicate address geocoded %d times", f.geocodes.Load())
	}
}

func TestNewORSRequiresKey(t *testing.T) {
	_, err := NewORSRouteProvider(ORSConfig{APIKey: "  "}, nil, nil)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
