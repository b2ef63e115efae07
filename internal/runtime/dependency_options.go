package runtime

import (
	"context"
	"fmt"

	"github.com/architeacher/amqp-messenger/internal/adapters"
	"github.com/architeacher/amqp-messenger/internal/adapters/repos"
	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/infrastructure"
)

type (
	DependencyOption func(*Dependencies) error
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithSecretStorage(),
		WithSecretStorageRepo(),
		WithConfigLoader(ctx),
		WithMetrics(ctx),
		WithDirectory(),
	}
}

// WithSecretStorage initializes the Vault client using ENV config.
func WithSecretStorage() DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.SecretStorage.Enabled {
			return nil
		}

		client, err := repos.NewVaultClient(d.cfg.SecretStorage)
		if err != nil {
			return err
		}

		d.Infra.SecretStorageClient = client

		return nil
	}
}

func WithSecretStorageRepo() DependencyOption {
	return func(d *Dependencies) error {
		if d.Infra.SecretStorageClient == nil {
			return nil
		}

		d.Repos.SecretStorageRepo = repos.NewVaultRepository(d.Infra.SecretStorageClient)

		return nil
	}
}

func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		d.configLoader = config.NewLoader(d.cfg, d.Repos.SecretStorageRepo, d.secretVersion)

		if !d.cfg.SecretStorage.Enabled {
			d.logger.Info().Msg("secret storage is disabled, skipping vault configuration loading")

			return nil
		}

		version, err := d.configLoader.Load(ctx)
		if err != nil {
			return fmt.Errorf("unable to load service configuration: %w", err)
		}

		d.secretVersion = version

		return nil
	}
}

func WithMetrics(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		metrics, err := infrastructure.NewMetrics(ctx, *d.cfg, d.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		d.Infra.Metrics = metrics

		return nil
	}
}

func WithDirectory() DependencyOption {
	return func(d *Dependencies) error {
		username, password := d.cfg.Management.Credentials(d.cfg.Broker)

		d.Adapters.Directory = adapters.NewManagementClient(
			d.cfg.Management,
			username,
			password,
			d.logger,
			d.Infra.Metrics,
			adapters.WithCredentialsSource(func() (string, string) {
				cfg := d.configLoader.Current()

				return cfg.Management.Credentials(cfg.Broker)
			}),
		)

		return nil
	}
}

// WithBroker connects to the broker. The broker being unreachable is a construction-time
// failure for every runtime. Reconnects use the credentials of the latest config reload.
func WithBroker(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		broker := infrastructure.NewBroker(*d.cfg, d.connectionName, d.logger, d.Infra.Metrics,
			infrastructure.WithConfigSource(d.configLoader.Current),
		)

		connectCtx, cancel := context.WithTimeout(ctx, d.cfg.Broker.ConnectTimeout)
		defer cancel()

		if err := broker.Connect(connectCtx); err != nil {
			return err
		}

		d.logger.Info().Str("connection", d.connectionName).Msg("broker connection established")
		d.Infra.Broker = broker

		return nil
	}
}

// WithSubscriptionStore selects where subscriptions are persisted. A Redis store that cannot
// be reached falls back to files so a cache outage never blocks messaging.
func WithSubscriptionStore(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		cfg := d.cfg.Subscriptions

		if cfg.Backend == config.SubscriptionBackendRedis {
			client, err := infrastructure.NewCacheClient(ctx, d.cfg.Cache)
			if err == nil {
				d.logger.Info().Str("addr", d.cfg.Cache.Addr).Msg("cache connection established")
				d.Infra.CacheClient = client
				d.Repos.SubscriptionRepo = repos.NewRedisSubscriptionRepository(client, cfg.KeyPrefix)

				return nil
			}

			d.logger.Error().Err(err).Msg("failed to connect to cache, storing subscriptions in files")
		}

		d.Repos.SubscriptionRepo = repos.NewFileSubscriptionRepository(cfg.Directory)

		return nil
	}
}

// WithOpsServer builds the metrics and health endpoints. It requires WithBroker.
func WithOpsServer() DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.OpsServer.Enabled {
			return nil
		}

		var healthChecker *adapters.HealthChecker
		if d.Infra.CacheClient != nil {
			healthChecker = adapters.NewHealthChecker(d.Infra.Broker.Supervisor, d.Adapters.Directory, d.Infra.CacheClient)
		} else {
			healthChecker = adapters.NewHealthChecker(d.Infra.Broker.Supervisor, d.Adapters.Directory, nil)
		}

		d.Adapters.HealthChecker = healthChecker
		d.Infra.OpsServer = NewOpsServer(*d.cfg, d.logger, d.Infra.Metrics, healthChecker)

		return nil
	}
}
