package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type (
	HTTPRequestRecorder interface {
		RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	}

	MetricsMiddleware struct {
		metrics HTTPRequestRecorder
	}
)

func NewMetricsMiddleware(metrics HTTPRequestRecorder) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
	}
}

func (m *MetricsMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		recorder := NewResponseRecorder(w)

		next.ServeHTTP(recorder, r)

		m.metrics.RecordHTTPRequest(
			r.Context(),
			r.Method,
			routePattern(r),
			recorder.StatusCode(),
			time.Since(startTime),
		)
	})
}

// routePattern prefers the matched chi pattern so unknown paths do not create new series.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}

		return "unmatched"
	}

	return r.URL.Path
}
