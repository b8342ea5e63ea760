package handlers

import (
	"errors"
	"net/http"
	"route-weather-service/internal/api/dto"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/ports"
	"strings"

	"github.com/gorilla/mux"
)

// ProbeZip is the zip code used to check the weather service connection.
const ProbeZip = "90210"

// WeatherHandler exposes the weather-by-zip collaborator directly.
type WeatherHandler struct {
	Weather ports.ZipWeatherClient
	// ServiceURL is reported by the connection probe.
	ServiceURL string
}

// ByZip proxies a single zip lookup.
func (h *WeatherHandler) ByZip(w http.ResponseWriter, r *http.Request) {
	zip := strings.TrimSpace(mux.Vars(r)["zip"])
	if zip == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "zip is required")
		return
	}

	cond, err := h.Weather.WeatherByZip(r.Context(), zip)
	if err != nil {
		logging.FromContext(r.Context()).Warn("weather proxy failed", "zip", zip, "err", err)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "not_found", "no weather for zip "+zip)
		case errors.Is(err, domain.ErrNotConfigured):
			writeError(w, r, http.StatusServiceUnavailable, "service_not_configured", "weather service is not configured")
		case httpx.IsTimeout(err):
			writeError(w, r, http.StatusGatewayTimeout, "timeout", "weather service timed out")
		default:
			writeError(w, r, http.StatusBadGateway, "upstream_error", "error fetching weather data")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, weatherResponse(cond))
}

// TestConnection checks the weather service with a known zip code.
func (h *WeatherHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	cond, err := h.Weather.WeatherByZip(r.Context(), ProbeZip)
	if err != nil {
		writeJSON(w, r, http.StatusBadGateway, dto.WeatherConnectionResponse{
			Status:  "error",
			Message: "failed to get weather data: " + err.Error(),
			APIURL:  h.ServiceURL,
		})
		return
	}

	wr := weatherResponse(cond)
	writeJSON(w, r, http.StatusOK, dto.WeatherConnectionResponse{
		Status:      "success",
		Message:     "successfully connected to weather API",
		WeatherData: &wr,
		APIURL:      h.ServiceURL,
	})
}
