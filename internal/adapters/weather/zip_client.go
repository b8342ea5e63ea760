package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"strings"
)

// zipResponse is the collaborator's payload. zip_code echoes the request.
type zipResponse struct {
	TemperatureC *float64 `json:"temperatureC"`
	Summary      *string  `json:"summary"`
	Country      *string  `json:"country"`
	ZipCode      string   `json:"zip_code"`
}

// ZipClient calls the weather-by-zip microservice (GET {base}/weather/{zip}).
type ZipClient struct {
	client  *httpx.Client
	baseURL string
}

func NewZipClient(client *httpx.Client, baseURL string) *ZipClient {
	if client == nil {
		client = httpx.New("weather_zip")
	}
	return &ZipClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (z *ZipClient) WeatherByZip(ctx context.Context, zip string) (_ ports.Conditions, err error) {
	defer obs.Time(ctx, "weather.WeatherByZip")(&err)

	zip = strings.TrimSpace(zip)
	if zip == "" {
		return ports.Conditions{}, fmt.Errorf("weather by zip: empty zip: %w", domain.ErrNotFound)
	}
	if z.baseURL == "" {
		return ports.Conditions{}, fmt.Errorf("weather by zip: no service url: %w", domain.ErrNotConfigured)
	}

	endpoint := z.baseURL + "/weather/" + url.PathEscape(zip)

	var decoded zipResponse
	err = z.client.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &decoded)
	if err != nil {
		switch {
		case httpx.IsAuthError(err):
			return ports.Conditions{}, fmt.Errorf("weather by zip %s: %w: %w", zip, domain.ErrNotConfigured, err)
		case httpx.StatusCode(err) == http.StatusNotFound:
			return ports.Conditions{}, fmt.Errorf("weather by zip %s: %w: %w", zip, domain.ErrNotFound, err)
		}
		return ports.Conditions{}, fmt.Errorf("weather by zip %s: %w", zip, err)
	}

	return ports.Conditions{
		TemperatureC: decoded.TemperatureC,
		Summary:      decoded.Summary,
		Country:      decoded.Country,
	}, nil
}
