package dto

// APIError is the body of every non-2xx response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, route_unavailable, service_not_configured, timeout, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}
