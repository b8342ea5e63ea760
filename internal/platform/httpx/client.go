package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"route-weather-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Policy describes how failed outbound calls are retried.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultPolicy retries up to four attempts starting at 200ms and doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
	}
}

// StatusError is returned for non-2xx responses; the body has been consumed.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// Client is a retrying, rate-limited wrapper around *http.Client.
// It is safe for concurrent use and meant to be shared per provider.
type Client struct {
	name    string
	session *http.Client
	policy  Policy
	limiter *rate.Limiter
}

type Option func(*Client)

// WithTimeout sets the per-call timeout covering connect, headers and body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.session.Timeout = d }
}

func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRateLimit caps outbound calls to rps with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTransport replaces the underlying round tripper (tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.session.Transport = rt }
}

func New(name string, opts ...Option) *Client {
	c := &Client{
		name:    name,
		session: &http.Client{Timeout: 10 * time.Second},
		policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	return c
}

func (c *Client) Name() string { return c.name }

// HTTPClient exposes the underlying session for SDKs that bring their own
// request handling. Callers wrap such SDK calls in Retry themselves.
func (c *Client) HTTPClient() *http.Client { return c.session }

func (c *Client) Policy() Policy { return c.policy }

// Do executes the request built by makeReq, retrying transient failures
// (network errors, 429 and 5xx responses) while respecting context
// cancellation. makeReq is called once per attempt so request bodies can be
// rebuilt.
func (c *Client) Do(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	return Retry(ctx, c.name, c.policy, func() (*http.Response, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, Permanent(err)
			}
		}

		req, err := makeReq()
		if err != nil {
			return nil, Permanent(fmt.Errorf("make request: %w", err))
		}

		resp, err := c.do(req)
		if err != nil && !retryable(err) {
			return nil, Permanent(err)
		}
		return resp, err
	})
}

// DoJSON runs Do and decodes a JSON response body into out.
func (c *Client) DoJSON(ctx context.Context, makeReq func() (*http.Request, error), out any) error {
	resp, err := c.Do(ctx, makeReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// Retry runs op until it succeeds, returns an error wrapped by Permanent, the
// policy's attempts are exhausted, or ctx is done. Waits between attempts grow
// exponentially from InitialBackoff up to MaxBackoff. It is the one retry
// path for every outbound provider, HTTP or SDK based.
func Retry[T any](ctx context.Context, name string, p Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	if p.Multiplier > 1 {
		b.Multiplier = p.Multiplier
	}
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	notify := func(err error, wait time.Duration) {
		obs.OutboundRetries.WithLabelValues(name).Inc()
	}

	res, err := backoff.RetryNotifyWithData[T](op, bo, notify)
	if err != nil {
		obs.OutboundRequests.WithLabelValues(name, outcome(err)).Inc()
		return res, err
	}
	obs.OutboundRequests.WithLabelValues(name, "ok").Inc()
	return res, nil
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.Code)
	case IsTimeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsAuthError reports whether the provider rejected our credentials.
func IsAuthError(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
