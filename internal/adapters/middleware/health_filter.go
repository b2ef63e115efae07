package middleware

import (
	"net/http"
	"slices"
)

// HealthCheckFilter keeps probe and scrape traffic out of the access log.
type HealthCheckFilter struct {
	quietPaths      []string
	logHealthChecks bool
}

func NewHealthCheckFilter(logHealthChecks bool, quietPaths ...string) *HealthCheckFilter {
	if len(quietPaths) == 0 {
		quietPaths = []string{"/health", "/healthz", "/metrics"}
	}

	return &HealthCheckFilter{
		quietPaths:      quietPaths,
		logHealthChecks: logHealthChecks,
	}
}

func (h *HealthCheckFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.logHealthChecks && slices.Contains(h.quietPaths, r.URL.Path) {
			next.ServeHTTP(w, r.WithContext(SkipAccessLog(r.Context())))

			return
		}

		next.ServeHTTP(w, r)
	})
}
