package domain

import (
	"errors"
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	nyc := Coordinates{Lat: 40.7128, Lon: -74.0060}
	boston := Coordinates{Lat: 42.3601, Lon: -71.0589}

	got := HaversineMeters(nyc, boston)
	// ~306 km great-circle.
	if got < 300000 || got > 312000 {
		t.Fatalf("nyc->boston = %.0fm, want ~306km", got)
	}

	if d := HaversineMeters(nyc, nyc); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestDistanceUnitConversions(t *testing.T) {
	tests := []struct {
		in   string
		unit DistanceUnit
	}{
		{"", Miles},
		{"mi", Miles},
		{"Miles", Miles},
		{"km", Kilometers},
		{" kilometres ", Kilometers},
	}
	for _, tt := range tests {
		u, err := ParseDistanceUnit(tt.in)
		if err != nil {
			t.Fatalf("ParseDistanceUnit(%q): %v", tt.in, err)
		}
		if u != tt.unit {
			t.Errorf("ParseDistanceUnit(%q) = %q, want %q", tt.in, u, tt.unit)
		}
	}

	if _, err := ParseDistanceUnit("furlongs"); err == nil {
		t.Fatalf("expected error for unknown unit")
	}

	if m := Miles.Meters(1); math.Abs(m-1609.344) > 1e-9 {
		t.Errorf("1mi = %v m", m)
	}
	if km := Kilometers.FromMeters(2500); km != 2.5 {
		t.Errorf("2500m = %v km", km)
	}
}

func TestInterpolate(t *testing.T) {
	a := Coordinates{Lat: 0, Lon: 0}
	b := Coordinates{Lat: 10, Lon: 20}

	mid := Interpolate(a, b, 0.5)
	if mid.Lat != 5 || mid.Lon != 10 {
		t.Fatalf("midpoint = %v, want 5,10", mid)
	}
	if p := Interpolate(a, b, 0); p != a {
		t.Fatalf("f=0 gave %v", p)
	}
}

func TestRouteResolutionErrorUnwrap(t *testing.T) {
	err := &RouteResolutionError{Address: "Nowhere", Err: ErrNotFound}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to see ErrNotFound")
	}
	if err.Error() == "" {
		t.Fatalf("empty message")
	}
}
