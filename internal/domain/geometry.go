package domain

import (
	"fmt"
	"math"
	"strings"
)

const earthRadiusMeters = 6371000.0

const (
	metersPerMile      = 1609.344
	metersPerKilometer = 1000.0
)

// DistanceUnit is the unit in which sampling intervals and offsets are expressed.
type DistanceUnit string

const (
	Miles      DistanceUnit = "mi"
	Kilometers DistanceUnit = "km"
)

// ParseDistanceUnit accepts "mi"/"miles" and "km"/"kilometers".
func ParseDistanceUnit(s string) (DistanceUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mi", "mile", "miles":
		return Miles, nil
	case "km", "kilometer", "kilometers", "kilometre", "kilometres":
		return Kilometers, nil
	}
	return "", fmt.Errorf("unknown distance unit %q", s)
}

// Meters converts a distance in this unit to meters.
func (u DistanceUnit) Meters(v float64) float64 {
	if u == Kilometers {
		return v * metersPerKilometer
	}
	return v * metersPerMile
}

// FromMeters converts meters to this unit.
func (u DistanceUnit) FromMeters(m float64) float64 {
	if u == Kilometers {
		return m / metersPerKilometer
	}
	return m / metersPerMile
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Coordinates) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// Interpolate returns the point at fraction f (0..1) of the straight segment a->b.
// Segments between polyline vertices are short, so linear interpolation in
// lat/lon space is accurate enough for weather sampling.
func Interpolate(a, b Coordinates, f float64) Coordinates {
	return Coordinates{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lon: a.Lon + (b.Lon-a.Lon)*f,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
