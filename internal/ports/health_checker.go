package ports

import (
	"context"

	"github.com/architeacher/amqp-messenger/internal/domain"
)

type HealthChecker interface {
	CheckHealth(ctx context.Context) *domain.HealthResult
}
