package api

import (
	"context"
	"log/slog"
	"net/http"
	"route-weather-service/internal/api/handlers"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/platform/obs"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

// statusWriter captures the final HTTP status code and number of bytes written.
// This helps distinguish "handler returned 200" from "client received a response".
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Record implicit 200 responses when handlers write without calling WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// routeInfo is filled in by mux once a route matches, so the outer
// middleware can label metrics with the route template instead of the raw path.
type routeInfo struct {
	template string
}

type routeInfoKey struct{}

// requestIDMiddleware assigns every request an id, reusing a sane inbound
// X-Request-ID, and puts a logger tagged with it in the request context.
func requestIDMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := obs.WithRequestID(r.Context(), id)
			ctx = logging.WithLogger(ctx, base.With("req_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggingMiddleware logs end-to-end request duration and response size and
// records the request in the HTTP metrics.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{
			ResponseWriter: w,
			status:         0,
		}
		info := &routeInfo{template: "unmatched"}
		r = r.WithContext(context.WithValue(r.Context(), routeInfoKey{}, info))

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		elapsed := time.Since(start)

		obs.HTTPRequestsTotal.WithLabelValues(r.Method, info.template, strconv.Itoa(sw.status)).Inc()
		obs.HTTPRequestDuration.WithLabelValues(r.Method, info.template).Observe(elapsed.Seconds())

		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", sw.status,
			"bytes", sw.bytes,
			"dur_ms", elapsed.Milliseconds(),
		)
	})
}

// routeTemplateMiddleware runs inside mux and records the matched template.
func routeTemplateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := r.Context().Value(routeInfoKey{}).(*routeInfo); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					info.template = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns a handler panic into a 500 response.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context()).Error("handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				handlers.InternalError(w, r)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
