package handlers

import (
	"context"
	"errors"
	"net/http"
	"route-weather-service/internal/api/dto"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/services"
	"time"
)

// RoutePlanner is the pipeline behind the route weather endpoint.
type RoutePlanner interface {
	Plan(ctx context.Context, req services.PlanRouteWeatherRequest) (*domain.RouteWeatherResult, error)
}

type RouteWeatherHandler struct {
	Planner         RoutePlanner
	DefaultInterval float64
	// RequestTimeout bounds the whole pipeline; zero means no extra bound.
	RequestTimeout time.Duration
}

// Plan routes the requested addresses and returns weather along the way.
func (h *RouteWeatherHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteWeatherRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	interval := h.DefaultInterval
	if req.IntervalDistance != nil {
		interval = *req.IntervalDistance
	}

	svcReq := services.PlanRouteWeatherRequest{
		Addresses:        req.Addresses,
		IntervalDistance: interval,
	}
	if p := req.Preferences; p != nil {
		svcReq.Preferences = domain.RoutePreference{
			AvoidHighways: p.AvoidHighways,
			AvoidTolls:    p.AvoidTolls,
			Reverse:       p.Reverse,
		}
	}

	ctx := r.Context()
	if h.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RequestTimeout)
		defer cancel()
	}

	result, err := h.Planner.Plan(ctx, svcReq)
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}

	res := dto.RouteWeatherResponse{
		Route:          make([]dto.RoutePointResponse, 0, len(result.Points)),
		DegradedPoints: result.DegradedPoints,
		TotalDistance:  result.TotalDistance,
		Unit:           string(result.Unit),
	}
	for _, pw := range result.Points {
		p := pw.Point
		res.Route = append(res.Route, dto.RoutePointResponse{
			SequenceIndex: p.SequenceIndex,
			Lat:           p.Location.Lat,
			Lon:           p.Location.Lon,
			IsStop:        p.IsStop,
			Address:       p.Address,
			ZipCode:       p.PostalCode,
			Distance:      p.Distance,
			Weather: dto.WeatherResponse{
				TemperatureC: pw.Weather.TemperatureCelsius,
				Summary:      pw.Weather.ConditionSummary,
				Country:      pw.Weather.CountryCode,
			},
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteWeatherHandler) writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var ve *domain.ValidationError
	var rre *domain.RouteResolutionError

	switch {
	case errors.As(err, &ve):
		writeError(w, r, http.StatusBadRequest, "bad_request", ve.Error())
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		log.Warn("route weather timed out", "err", err)
		writeError(w, r, http.StatusGatewayTimeout, "timeout", "route weather request timed out")
	case errors.Is(err, domain.ErrNotConfigured):
		log.Error("route weather provider not configured", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "service_not_configured", "routing service is not configured")
	case errors.As(err, &rre):
		log.Warn("route resolution failed", "address", rre.Address, "err", err)
		msg := "could not calculate route"
		if rre.Address != "" {
			msg = "could not calculate route: unable to resolve address " + rre.Address
		}
		writeError(w, r, http.StatusServiceUnavailable, "route_unavailable", msg)
	default:
		log.Error("route weather failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
