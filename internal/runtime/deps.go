package runtime

import (
	"context"
	"fmt"

	"github.com/architeacher/amqp-messenger/internal/adapters"
	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/infrastructure"
	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/hashicorp/vault/api"
	"github.com/redis/go-redis/v9"
)

type (
	InfrastructureDeps struct {
		SecretStorageClient *api.Client
		Broker              *infrastructure.Broker
		CacheClient         *redis.Client
		Metrics             infrastructure.Metrics
		OpsServer           ports.BackgroundProcessor
	}

	Repos struct {
		SecretStorageRepo ports.SecretsRepository
		SubscriptionRepo  ports.SubscriptionRepository
	}

	Adapters struct {
		Directory     *adapters.ManagementClient
		HealthChecker ports.HealthChecker
	}

	Dependencies struct {
		cfg          *config.ServiceConfig
		configLoader *config.Loader

		logger infrastructure.Logger

		Infra    InfrastructureDeps
		Repos    Repos
		Adapters Adapters

		connectionName string
		secretVersion  uint
	}
)

func initializeDependencies(ctx context.Context, connectionName string, opts ...DependencyOption) (*Dependencies, error) {
	cfg, err := config.Init()
	if err != nil {
		return nil, fmt.Errorf("unable to load service configuration: %w", err)
	}

	appLogger := infrastructure.New(cfg.Logging)

	appLogger.Info().Msg("initializing dependencies...")

	deps := &Dependencies{
		cfg:            cfg,
		logger:         appLogger,
		connectionName: connectionName,
	}

	// Start with default options and append any additional options.
	options := append(defaultOptions(ctx), opts...)

	for _, opt := range options {
		if err := opt(deps); err != nil {
			deps.Close(ctx)

			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	deps.logger.Info().Msg("dependencies initialized successfully")

	return deps, nil
}

// Close releases whatever the options managed to open, in reverse order of creation.
func (d *Dependencies) Close(ctx context.Context) {
	d.logger.Info().Msg("cleaning up resources...")

	if d.Infra.Broker != nil {
		if err := d.Infra.Broker.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close broker connection")
		}
	}

	if d.Infra.CacheClient != nil {
		if err := d.Infra.CacheClient.Close(); err != nil {
			d.logger.Error().Err(err).Msg("failed to close cache connection")
		}
	}

	if d.Infra.Metrics != nil {
		if err := d.Infra.Metrics.Shutdown(ctx); err != nil {
			d.logger.Error().Err(err).Msg("failed to shutdown metrics")
		}
	}

	d.logger.Info().Msg("cleanup completed")
}
