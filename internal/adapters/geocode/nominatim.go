package geocode

import (
	"context"
	"fmt"
	"net/http"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"strconv"
	"strings"
)

type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		Postcode    string `json:"postcode"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Nominatim reverse geocodes through an OpenStreetMap Nominatim instance.
// The public instance allows one request per second; the client passed in
// is expected to enforce that.
type Nominatim struct {
	client    *httpx.Client
	baseURL   string
	userAgent string
}

func NewNominatim(client *httpx.Client, baseURL, userAgent string) *Nominatim {
	if client == nil {
		client = httpx.New("nominatim", httpx.WithRateLimit(1, 1))
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if userAgent == "" {
		userAgent = "route_weather_planner"
	}
	return &Nominatim{client: client, baseURL: baseURL, userAgent: userAgent}
}

func (n *Nominatim) ResolvePostal(ctx context.Context, c domain.Coordinates) (_ ports.Place, err error) {
	defer obs.Time(ctx, "nominatim.ResolvePostal")(&err)

	var decoded nominatimResponse
	err = n.client.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse", nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		q := req.URL.Query()
		q.Set("format", "jsonv2")
		q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 6, 64))
		q.Set("lon", strconv.FormatFloat(c.Lon, 'f', 6, 64))
		q.Set("addressdetails", "1")
		req.URL.RawQuery = q.Encode()
		req.Header.Set("User-Agent", n.userAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &decoded)
	if err != nil {
		if httpx.IsAuthError(err) {
			return ports.Place{}, fmt.Errorf("nominatim reverse: %w: %w", domain.ErrNotConfigured, err)
		}
		return ports.Place{}, fmt.Errorf("nominatim reverse: %w", err)
	}

	if decoded.Error != "" {
		return ports.Place{}, fmt.Errorf("nominatim reverse %s: %s: %w", c, decoded.Error, domain.ErrNotFound)
	}

	country := strings.ToUpper(decoded.Address.CountryCode)
	postal := cleanPostcode(decoded.Address.Postcode, country)
	if postal == "" {
		return ports.Place{}, fmt.Errorf("nominatim reverse %s: no postcode: %w", c, domain.ErrNotFound)
	}

	return ports.Place{PostalCode: postal, CountryCode: country}, nil
}

// cleanPostcode keeps the first of several codes and drops the US ZIP+4 suffix.
func cleanPostcode(raw, country string) string {
	code, _, _ := strings.Cut(raw, ";")
	code, _, _ = strings.Cut(code, ",")
	code = strings.TrimSpace(code)
	if country == "US" {
		code, _, _ = strings.Cut(code, "-")
	}
	return code
}
