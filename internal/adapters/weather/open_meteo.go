package weather

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

type openMeteoResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		WeatherCode *int     `json:"weather_code"`
	} `json:"current"`
}

// OpenMeteo reads current conditions at a coordinate from the Open-Meteo
// forecast API. It needs no credentials and reports no country.
type OpenMeteo struct {
	client  *httpx.Client
	baseURL string
}

func NewOpenMeteo(client *httpx.Client, baseURL string) *OpenMeteo {
	if client == nil {
		client = httpx.New("open_meteo")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}
	return &OpenMeteo{client: client, baseURL: baseURL}
}

func (o *OpenMeteo) WeatherAt(ctx context.Context, c domain.Coordinates) (_ ports.Conditions, err error) {
	defer obs.Time(ctx, "weather.WeatherAt")(&err)

	var decoded openMeteoResponse
	err = o.client.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/forecast", nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		q := req.URL.Query()
		q.Set("latitude", strconv.FormatFloat(c.Lat, 'f', 5, 64))
		q.Set("longitude", strconv.FormatFloat(c.Lon, 'f', 5, 64))
		q.Set("current", "temperature_2m,weather_code")
		q.Set("temperature_unit", "celsius")
		req.URL.RawQuery = q.Encode()
		return req, nil
	}, &decoded)
	if err != nil {
		return ports.Conditions{}, fmt.Errorf("open-meteo %s: %w", c, err)
	}

	if decoded.Current == nil {
		return ports.Conditions{}, fmt.Errorf("open-meteo %s: no current conditions: %w", c, domain.ErrNotFound)
	}

	out := ports.Conditions{TemperatureC: decoded.Current.Temperature}
	if decoded.Current.WeatherCode != nil {
		if s, ok := wmoSummaries[*decoded.Current.WeatherCode]; ok {
			out.Summary = &s
		}
	}
	return out, nil
}

// WMO weather interpretation codes used by Open-Meteo.
var wmoSummaries = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}
