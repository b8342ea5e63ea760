package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func getter(ctx context.Context, url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New("test", WithPolicy(fastPolicy(4)))

	var out struct {
		OK bool `json:"ok"`
	}
	ctx := context.Background()
	if err := c.DoJSON(ctx, getter(ctx, srv.URL), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK {
		t.Fatalf("body not decoded")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("test", WithPolicy(fastPolicy(4)))
	ctx := context.Background()
	_, err := c.Do(ctx, getter(ctx, srv.URL))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Body != "bad key" {
		t.Fatalf("status error body = %+v", se)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("test", WithPolicy(fastPolicy(3)))
	ctx := context.Background()
	_, err := c.Do(ctx, getter(ctx, srv.URL))
	if StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want 429", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestClientPerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New("test", WithTimeout(20*time.Millisecond), WithPolicy(fastPolicy(1)))
	ctx := context.Background()
	_, err := c.Do(ctx, getter(ctx, srv.URL))
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClientStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("test", WithPolicy(fastPolicy(5)), WithRateLimit(100, 1))
	_, err := c.Do(ctx, getter(ctx, srv.URL))
	if err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestRetryGeneric(t *testing.T) {
	attempts := 0
	got, err := Retry(context.Background(), "sdk", fastPolicy(3), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("flaky")
		}
		return "done", nil
	})
	if err != nil || got != "done" {
		t.Fatalf("Retry = %q, %v", got, err)
	}

	attempts = 0
	sentinel := errors.New("denied")
	_, err = Retry(context.Background(), "sdk", fastPolicy(5), func() (int, error) {
		attempts++
		return 0, Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if attempts != 1 {
		t.Fatalf("permanent error retried %d times", attempts)
	}
}
