package services

import (
	"context"
	"errors"
	"math"
	"route-weather-service/internal/adapters/routing"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/ports"
	"strings"
	"testing"
)

var (
	newYork = domain.Coordinates{Lat: 40.7128, Lon: -74.0060}
	boston  = domain.Coordinates{Lat: 42.3601, Lon: -71.0589}
)

type countingRouter struct {
	next  ports.RouteProvider
	err   error
	calls int
	got   []string
}

func (c *countingRouter) PlanRoute(ctx context.Context, addresses []string, pref domain.RoutePreference) (*domain.Route, error) {
	c.calls++
	c.got = addresses
	if c.err != nil {
		return nil, c.err
	}
	return c.next.PlanRoute(ctx, addresses, pref)
}

func newPipeline(router *countingRouter) *RouteWeatherService {
	resolver := resolverFunc(func(ctx context.Context, p domain.SamplePoint) (Resolution, error) {
		return sunny(p.SequenceIndex), nil
	})
	return NewRouteWeatherService(router, NewSampler(domain.Miles, 0.5), NewAggregator(resolver, 4), 100)
}

func mockRouter() *countingRouter {
	return &countingRouter{next: routing.NewMockRouteProvider([]routing.MockPlace{
		{Address: "New York, NY", Location: newYork},
		{Address: "Boston, MA", Location: boston},
	})}
}

func TestPlanNewYorkToBoston(t *testing.T) {
	router := mockRouter()
	res, err := newPipeline(router).Plan(context.Background(), PlanRouteWeatherRequest{
		Addresses:        []string{"New York, NY", "Boston, MA"},
		IntervalDistance: 100,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// ~190 mi: one checkpoint at 100 mi between the two stops.
	if len(res.Points) != 3 {
		t.Fatalf("got %d points, want 3", len(res.Points))
	}
	first := res.Points[0].Point
	if first.SequenceIndex != 0 || !first.IsStop || *first.Address != "New York, NY" {
		t.Fatalf("origin = %+v", first)
	}
	if res.Points[1].Point.IsStop || math.Abs(res.Points[1].Point.Distance-100) > 1e-6 {
		t.Fatalf("checkpoint = %+v", res.Points[1].Point)
	}
	if last := res.Points[2].Point; !last.IsStop || *last.Address != "Boston, MA" {
		t.Fatalf("destination = %+v", last)
	}
	if res.Unit != domain.Miles || res.TotalDistance < 185 || res.TotalDistance > 195 {
		t.Fatalf("total = %v %s", res.TotalDistance, res.Unit)
	}
	if res.DegradedPoints != 0 {
		t.Fatalf("degraded = %d", res.DegradedPoints)
	}
}

func TestPlanReverse(t *testing.T) {
	router := mockRouter()
	res, err := newPipeline(router).Plan(context.Background(), PlanRouteWeatherRequest{
		Addresses:        []string{"New York, NY", "Boston, MA"},
		IntervalDistance: 50,
		Preferences:      domain.RoutePreference{Reverse: true},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if *res.Points[0].Point.Address != "Boston, MA" || *res.Points[len(res.Points)-1].Point.Address != "New York, NY" {
		t.Fatalf("route not reversed")
	}
	if router.got[0] != "Boston, MA" {
		t.Fatalf("router got %v", router.got)
	}
}

func TestPlanDestinationOnPreviousStop(t *testing.T) {
	router := &countingRouter{next: routing.NewMockRouteProvider([]routing.MockPlace{
		{Address: "New York, NY", Location: newYork},
		{Address: "Boston, MA", Location: boston},
		{Address: "Fenway Park Boston", Location: boston},
	})}

	res, err := newPipeline(router).Plan(context.Background(), PlanRouteWeatherRequest{
		Addresses:        []string{"New York, NY", "Boston, MA", "Fenway Park Boston"},
		IntervalDistance: 100,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	last := res.Points[len(res.Points)-1].Point
	if !last.IsStop || *last.Address != "Fenway Park Boston" {
		t.Fatalf("destination = %+v", last)
	}
	if len(res.Points) != 3 {
		t.Fatalf("got %d points, want 3", len(res.Points))
	}
}

func TestPlanValidationMakesNoCalls(t *testing.T) {
	many := make([]string, MaxAddresses+1)
	for i := range many {
		many[i] = "Boston, MA"
	}

	cases := []struct {
		name string
		req  PlanRouteWeatherRequest
	}{
		{"one address", PlanRouteWeatherRequest{Addresses: []string{"Boston, MA"}, IntervalDistance: 10}},
		{"too many", PlanRouteWeatherRequest{Addresses: many, IntervalDistance: 10}},
		{"blank address", PlanRouteWeatherRequest{Addresses: []string{"Boston, MA", "   "}, IntervalDistance: 10}},
		{"zero interval", PlanRouteWeatherRequest{Addresses: []string{"New York, NY", "Boston, MA"}, IntervalDistance: 0}},
		{"negative interval", PlanRouteWeatherRequest{Addresses: []string{"New York, NY", "Boston, MA"}, IntervalDistance: -1}},
		{"interval too large", PlanRouteWeatherRequest{Addresses: []string{"New York, NY", "Boston, MA"}, IntervalDistance: 101}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			router := mockRouter()
			_, err := newPipeline(router).Plan(context.Background(), c.req)

			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if router.calls != 0 {
				t.Fatalf("router called %d times", router.calls)
			}
		})
	}
}

func TestPlanNormalizesAddresses(t *testing.T) {
	router := mockRouter()
	_, err := newPipeline(router).Plan(context.Background(), PlanRouteWeatherRequest{
		Addresses:        []string{"  New York,   NY ", "Boston, MA"},
		IntervalDistance: 10,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if router.got[0] != "New York, NY" {
		t.Fatalf("router got %q", router.got[0])
	}
}

func TestPlanRouteErrors(t *testing.T) {
	req := PlanRouteWeatherRequest{Addresses: []string{"New York, NY", "Atlantis"}, IntervalDistance: 10}

	// Unknown address from the provider names the address.
	_, err := newPipeline(mockRouter()).Plan(context.Background(), req)
	var rre *domain.RouteResolutionError
	if !errors.As(err, &rre) || rre.Address != "Atlantis" {
		t.Fatalf("err = %v, want RouteResolutionError for Atlantis", err)
	}

	// Unclassified provider failures still surface as resolution errors.
	router := mockRouter()
	router.err = errors.New("connection reset")
	_, err = newPipeline(router).Plan(context.Background(), req)
	if !errors.As(err, &rre) || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err = %v", err)
	}

	router.next = routing.Unconfigured{Reason: "ORS_API_KEY is not set"}
	router.err = nil
	_, err = newPipeline(router).Plan(context.Background(), req)
	if !errors.Is(err, domain.ErrNotConfigured) || errors.As(err, &rre) {
		t.Fatalf("err = %v, want plain ErrNotConfigured", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	router.next = mockRouter().next
	router.err = errors.New("dial: operation was canceled")
	_, err = newPipeline(router).Plan(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
