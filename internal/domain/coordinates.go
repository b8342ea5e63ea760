package domain

import "fmt"

// Immutable geographic coordinates (WGS 84).
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Valid reports whether the coordinates lie within WGS 84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
