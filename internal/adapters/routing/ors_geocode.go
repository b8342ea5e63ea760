package routing

import (
	"context"
	"fmt"
	"net/http"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/obs"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// geocodeMany resolves addresses individually using OpenRouteService (/geocode/search).
// An address with no match fails the whole call with a *domain.RouteResolutionError.
func (o *ORSRouteProvider) geocodeMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.geocodeMany")(&err)

	endpoint := o.baseURL + "/geocode/search"

	out := make(map[string]domain.Coordinates, len(addresses))
	for _, a := range addresses {
		if _, ok := out[a]; ok {
			continue
		}

		var decoded geocodeResponse
		err := o.client.DoJSON(ctx, func() (*http.Request, error) {
			req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			q := req.URL.Query()
			q.Set("text", a)
			if o.country != "" {
				q.Set("boundary.country", o.country)
			}
			q.Set("size", "1")
			req.URL.RawQuery = q.Encode()
			return req, nil
		}, &decoded)
		if err != nil {
			return nil, o.providerError("geocode", a, err)
		}

		if len(decoded.Features) == 0 {
			return nil, &domain.RouteResolutionError{Address: a, Err: domain.ErrNotFound}
		}

		coords := decoded.Features[0].Geometry.Coordinates
		if len(coords) != 2 {
			return nil, &domain.RouteResolutionError{
				Address: a,
				Err:     fmt.Errorf("invalid coordinate format %v", coords),
			}
		}

		out[a] = domain.Coordinates{
			Lon: coords[0],
			Lat: coords[1],
		}
	}

	return out, nil
}
