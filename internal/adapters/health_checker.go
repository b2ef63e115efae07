package adapters

import (
	"context"
	"time"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/redis/go-redis/v9"
)

type (
	// Pinger reports whether a dependency answers.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// HealthChecker implements the health checking functionality
	HealthChecker struct {
		startTime time.Time
		broker    ports.ConnectionStater
		directory Pinger
		cache     redis.Cmdable
	}
)

// NewHealthChecker creates a new health checker instance. cache may be nil when the
// subscriptions are stored in files.
func NewHealthChecker(broker ports.ConnectionStater, directory Pinger, cache redis.Cmdable) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		broker:    broker,
		directory: directory,
		cache:     cache,
	}
}

// CheckHealth performs a comprehensive health check and returns detailed results
func (h *HealthChecker) CheckHealth(ctx context.Context) *domain.HealthResult {
	brokerStatus := h.checkBrokerHealth()
	directoryStatus := h.checkDependency(ctx, h.directory.Ping)

	var cacheStatus *domain.DependencyStatus
	if h.cache != nil {
		status := h.checkDependency(ctx, func(ctx context.Context) error {
			return h.cache.Ping(ctx).Err()
		})
		cacheStatus = &status
	}

	return &domain.HealthResult{
		OverallStatus: h.calculateOverallHealthStatus(brokerStatus, directoryStatus, cacheStatus),
		Broker:        brokerStatus,
		Directory:     directoryStatus,
		Cache:         cacheStatus,
		Uptime:        float32(time.Since(h.startTime).Seconds()),
	}
}

// calculateOverallHealthStatus treats the broker as critical; the management API and the
// cache only degrade the service.
func (h *HealthChecker) calculateOverallHealthStatus(
	broker, directory domain.DependencyStatus,
	cache *domain.DependencyStatus,
) domain.HealthResponseStatus {
	if broker.Status == domain.DependencyCheckStatusUnhealthy {
		return domain.HealthResponseStatusUnhealthy
	}

	if directory.Status == domain.DependencyCheckStatusUnhealthy {
		return domain.HealthResponseStatusDegraded
	}

	if cache != nil && cache.Status == domain.DependencyCheckStatusUnhealthy {
		return domain.HealthResponseStatusDegraded
	}

	return domain.HealthResponseStatusHealthy
}

// checkBrokerHealth reads the supervisor state without dialing.
func (h *HealthChecker) checkBrokerHealth() domain.DependencyStatus {
	status := domain.DependencyStatus{
		Status:      domain.DependencyCheckStatusHealthy,
		LastChecked: time.Now(),
	}

	switch state := h.broker.State(); state {
	case queue.StateConnected:
	case queue.StateConnecting:
		status.Status = domain.DependencyCheckStatusDegraded
		status.Error = "connection in progress"
	default:
		status.Status = domain.DependencyCheckStatusUnhealthy
		status.Error = "broker connection is " + state.String()
	}

	return status
}

func (h *HealthChecker) checkDependency(ctx context.Context, ping func(context.Context) error) domain.DependencyStatus {
	start := time.Now()

	err := ping(ctx)

	status := domain.DependencyStatus{
		Status:       domain.DependencyCheckStatusHealthy,
		ResponseTime: float32(time.Since(start).Milliseconds()),
		LastChecked:  time.Now(),
	}

	if err != nil {
		status.Status = domain.DependencyCheckStatusUnhealthy
		status.Error = err.Error()
	}

	return status
}
