package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"route-weather-service/internal/api/dto"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("encode failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, dto.APIError{
		Status:    status,
		Code:      code,
		Message:   msg,
		RequestID: obs.RequestID(r.Context()),
	})
}

// decodeStrict reads exactly one JSON object with no unknown fields.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

func weatherResponse(c ports.Conditions) dto.WeatherResponse {
	return dto.WeatherResponse{
		TemperatureC: c.TemperatureC,
		Summary:      c.Summary,
		Country:      c.Country,
	}
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not_found", "route not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

func InternalError(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
}
