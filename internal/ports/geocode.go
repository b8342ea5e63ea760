package ports

import (
	"context"
	"route-weather-service/internal/domain"
)

// Place is the administrative area found at a coordinate.
type Place struct {
	PostalCode  string
	CountryCode string
}

// Contract for reverse geocoding a coordinate to a postal area.
type PostalResolver interface {
	// Return the postal code at the coordinate, or an error wrapping domain.ErrNotFound.
	ResolvePostal(ctx context.Context, c domain.Coordinates) (Place, error)
}

// Persistent address -> coordinate cache used by forward geocoding.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
