package obs

import (
	"context"
	"route-weather-service/internal/platform/logging"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID returns ctx tagged with the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time starts timing op; call the returned func with the op's error pointer.
//
//	defer obs.Time(ctx, "ors.directions")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		dur := time.Since(start)
		outcome := "ok"
		log := logging.FromContext(ctx)

		if errp != nil && *errp != nil {
			outcome = "error"
			log.Debug("op finished", "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
		} else {
			log.Debug("op finished", "op", name, "dur_ms", dur.Milliseconds())
		}
		OpDuration.WithLabelValues(name, outcome).Observe(dur.Seconds())
	}
}
