package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/architeacher/amqp-messenger/internal/adapters/middleware"
	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/infrastructure"
	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	metricsRoute = "/metrics"
	healthRoute  = "/health"
)

// OpsServer serves the operational endpoints of a running process: metrics scraping and
// dependency health.
type OpsServer struct {
	server          *http.Server
	logger          infrastructure.Logger
	shutdownTimeout time.Duration
}

func NewOpsServer(
	cfg config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	healthChecker ports.HealthChecker,
) *OpsServer {
	logger = logger.Component("ops_server")

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.OpsServer.Host, fmt.Sprintf("%d", cfg.OpsServer.Port)),
		Handler:      newOpsRouter(cfg, logger, metrics, healthChecker),
		ReadTimeout:  cfg.OpsServer.ReadTimeout,
		WriteTimeout: cfg.OpsServer.WriteTimeout,
	}

	logger.Info().Str("addr", server.Addr).Msg("ops server created")

	return &OpsServer{
		server:          server,
		logger:          logger,
		shutdownTimeout: cfg.OpsServer.ShutdownTimeout,
	}
}

func (s *OpsServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts the server down gracefully.
func (s *OpsServer) Start(ctx context.Context) error {
	serveErr := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("ops server starting up")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}

		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("ops server stopped: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to gracefully shutdown ops server: %w", err)
	}

	s.logger.Info().Msg("ops server shutdown completed")

	return nil
}

func newOpsRouter(
	cfg config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	healthChecker ports.HealthChecker,
) http.Handler {
	router := chi.NewRouter()

	router.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.NewVersionHeaderMiddleware(cfg.AppConfig.ServiceName, cfg.AppConfig.ServiceVersion).Middleware,
		middleware.NewMetricsMiddleware(metrics).Middleware,
		middleware.NewHealthCheckFilter(false).Middleware,
		middleware.NewAccessLogger(logger.Logger).Middleware,
	)

	router.Method(http.MethodGet, metricsRoute, metrics.Handler())
	router.Get(healthRoute, healthHandler(healthChecker, logger))

	return router
}

func healthHandler(healthChecker ports.HealthChecker, logger infrastructure.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := healthChecker.CheckHealth(r.Context())

		statusCode := http.StatusOK
		if result.OverallStatus == domain.HealthResponseStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error().Err(err).Msg("failed to encode health result")
		}
	}
}
