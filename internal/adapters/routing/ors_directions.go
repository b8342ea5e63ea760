package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/obs"
	"strconv"

	"github.com/twpayne/go-polyline"
)

type directionsOptions struct {
	AvoidFeatures []string `json:"avoid_features,omitempty"`
}

type directionsRequest struct {
	Coordinates  [][]float64        `json:"coordinates"`
	Instructions bool               `json:"instructions"`
	Options      *directionsOptions `json:"options,omitempty"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
		} `json:"summary"`
		Geometry  string `json:"geometry"`
		WayPoints []int  `json:"way_points"`
	} `json:"routes"`
}

// fetchDirections requests a driving route through points, in order, and
// returns the decoded geometry plus the geometry index of every point.
func (o *ORSRouteProvider) fetchDirections(
	ctx context.Context,
	points []domain.Coordinates,
	pref domain.RoutePreference,
) (_ domain.Polyline, _ []int, err error) {
	defer obs.Time(ctx, "ors.fetchDirections")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)

	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, p.CoordsToList())
	}

	bodyObj := directionsRequest{Coordinates: coords}
	if avoid := avoidFeatures(pref); len(avoid) > 0 {
		bodyObj.Options = &directionsOptions{AvoidFeatures: avoid}
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal directions request: %w", err)
	}

	var dr directionsResponse
	err = o.client.DoJSON(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	}, &dr)
	if err != nil {
		return nil, nil, err
	}

	if len(dr.Routes) == 0 {
		return nil, nil, &domain.RouteResolutionError{Err: errors.New("ORS returned no routes")}
	}

	decoded, _, err := polyline.DecodeCoords([]byte(dr.Routes[0].Geometry))
	if err != nil {
		return nil, nil, &domain.RouteResolutionError{Err: fmt.Errorf("decode route geometry: %w", err)}
	}
	if len(decoded) == 0 {
		return nil, nil, &domain.RouteResolutionError{Err: errors.New("ORS returned an empty geometry")}
	}

	line := make(domain.Polyline, 0, len(decoded))
	for _, c := range decoded {
		line = append(line, domain.Coordinates{Lat: c[0], Lon: c[1]})
	}

	return line, dr.Routes[0].WayPoints, nil
}

func avoidFeatures(pref domain.RoutePreference) []string {
	var out []string
	if pref.AvoidHighways {
		out = append(out, "highways")
	}
	if pref.AvoidTolls {
		out = append(out, "tollways")
	}
	return out
}

// ORS names the offending waypoint as "point N" or "coordinate N".
var orsPointRE = regexp.MustCompile(`(?i)(?:point|coordinate)\s+(\d+)`)

// directionsError attributes an ORS routing failure to the address it names.
func (o *ORSRouteProvider) directionsError(err error, addresses []string) error {
	var rre *domain.RouteResolutionError
	if errors.As(err, &rre) {
		return err
	}

	var se *httpx.StatusError
	if !errors.As(err, &se) || httpx.IsAuthError(err) || se.Code >= 500 || se.Code == http.StatusTooManyRequests {
		return o.providerError("directions", "", err)
	}

	address := ""
	if m := orsPointRE.FindStringSubmatch(se.Body); m != nil {
		if i, convErr := strconv.Atoi(m[1]); convErr == nil && i >= 0 && i < len(addresses) {
			address = addresses[i]
		}
	}
	return &domain.RouteResolutionError{Address: address, Err: err}
}
