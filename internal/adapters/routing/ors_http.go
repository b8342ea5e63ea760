package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
)

func (o *ORSRouteProvider) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// providerError maps an outbound failure onto the domain error kinds.
// Rejected credentials become ErrNotConfigured, a 404 for a known address
// becomes a resolution failure, and everything else is returned wrapped.
func (o *ORSRouteProvider) providerError(op, address string, err error) error {
	switch {
	case httpx.IsAuthError(err):
		return fmt.Errorf("ORS %s: %w: %w", op, domain.ErrNotConfigured, err)
	case address != "" && httpx.StatusCode(err) == http.StatusNotFound:
		return &domain.RouteResolutionError{Address: address, Err: errors.Join(domain.ErrNotFound, err)}
	case address != "":
		return &domain.RouteResolutionError{Address: address, Err: err}
	default:
		return fmt.Errorf("ORS %s: %w", op, err)
	}
}
