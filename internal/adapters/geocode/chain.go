package geocode

import (
	"context"
	"errors"
	"fmt"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/ports"
)

// Named pairs a resolver with the name used in logs.
type Named struct {
	Name     string
	Resolver ports.PostalResolver
}

// Chain asks each resolver in turn and returns the first postal code found.
type Chain struct {
	resolvers []Named
}

func NewChain(resolvers ...Named) *Chain {
	return &Chain{resolvers: resolvers}
}

func (c *Chain) ResolvePostal(ctx context.Context, at domain.Coordinates) (ports.Place, error) {
	if len(c.resolvers) == 0 {
		return ports.Place{}, fmt.Errorf("reverse geocode: no resolvers: %w", domain.ErrNotConfigured)
	}

	var errs []error
	for _, r := range c.resolvers {
		place, err := r.Resolver.ResolvePostal(ctx, at)
		if err == nil {
			return place, nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return ports.Place{}, cerr
		}
		logging.FromContext(ctx).Debug("reverse geocoder fell through",
			"resolver", r.Name,
			"err", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", r.Name, err))
	}

	return ports.Place{}, errors.Join(errs...)
}
