package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogger_Middleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		path          string
		statusCode    int
		logProbes     bool
		expectedLevel string
		shouldLog     bool
	}{
		{
			name:          "successful request logs info level",
			path:          "/debug",
			statusCode:    http.StatusOK,
			expectedLevel: "info",
			shouldLog:     true,
		},
		{
			name:          "client error logs warn level",
			path:          "/debug",
			statusCode:    http.StatusNotFound,
			expectedLevel: "warn",
			shouldLog:     true,
		},
		{
			name:          "server error logs error level",
			path:          "/debug",
			statusCode:    http.StatusServiceUnavailable,
			expectedLevel: "error",
			shouldLog:     true,
		},
		{
			name:       "health probe is filtered",
			path:       "/health",
			statusCode: http.StatusOK,
			shouldLog:  false,
		},
		{
			name:       "metrics scrape is filtered",
			path:       "/metrics",
			statusCode: http.StatusOK,
			shouldLog:  false,
		},
		{
			name:          "health probe logged when enabled",
			path:          "/health",
			statusCode:    http.StatusOK,
			logProbes:     true,
			expectedLevel: "info",
			shouldLog:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			router := chi.NewRouter()
			router.Use(
				chimiddleware.RequestID,
				NewHealthCheckFilter(tc.logProbes).Middleware,
				NewAccessLogger(zerolog.New(&buf)).Middleware,
			)
			router.Get(tc.path, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("body"))
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path+"?verbose=1", nil))

			require.Equal(t, tc.statusCode, rec.Code)

			if !tc.shouldLog {
				assert.Zero(t, buf.Len())

				return
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			assert.Equal(t, tc.expectedLevel, entry["level"])
			assert.Equal(t, "http_access", entry["component"])
			assert.Equal(t, http.MethodGet, entry["method"])
			assert.Equal(t, tc.path, entry["path"])
			assert.Equal(t, "verbose=1", entry["query"])
			assert.InDelta(t, float64(tc.statusCode), entry["status_code"], 0)
			assert.InDelta(t, float64(4), entry["response_size_bytes"], 0)
			assert.NotEmpty(t, entry["request_id"])
			assert.Equal(t, "HTTP request completed", entry["message"])
		})
	}
}
