package middleware

import (
	"net/http"
)

type VersionHeaderMiddleware struct {
	service string
	version string
}

func NewVersionHeaderMiddleware(service, version string) VersionHeaderMiddleware {
	return VersionHeaderMiddleware{
		service: service,
		version: version,
	}
}

func (mw VersionHeaderMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Service-Name", mw.service)
		w.Header().Set("X-Service-Version", mw.version)

		next.ServeHTTP(w, r)
	})
}
