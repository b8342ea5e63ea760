package domain

import (
	"errors"
	"fmt"
)

// ErrNotConfigured marks a provider that cannot be called because its
// credentials or endpoint are missing or were rejected.
var ErrNotConfigured = errors.New("service not configured")

// ErrNotFound marks a lookup that completed but produced no result.
var ErrNotFound = errors.New("not found")

// ValidationError is a caller mistake detected before any external call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RouteResolutionError means no route could be produced for the request.
// Address names the stop that failed to resolve, when one is known.
type RouteResolutionError struct {
	Address string
	Err     error
}

func (e *RouteResolutionError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("could not resolve route at %q: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("could not resolve route: %v", e.Err)
}

func (e *RouteResolutionError) Unwrap() error { return e.Err }
