package infrastructure

import (
	"context"
	"fmt"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/shared/backoff"
	"github.com/architeacher/amqp-messenger/pkg/queue"
)

// Broker bundles the queue components that share one supervised connection.
type Broker struct {
	Supervisor  *queue.Supervisor
	Provisioner *queue.Provisioner
	Publisher   *queue.Publisher
	Consumer    *queue.Consumer
}

// NewBroker wires the queue components from configuration without connecting.
func NewBroker(cfg config.ServiceConfig, connectionName string, logger Logger, metrics Metrics, opts ...BrokerOption) *Broker {
	options := brokerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	queueLogger := logger.Component("broker").Queue()

	connectionOpts := []queue.ConnectionOption{
		queue.WithLogger(queueLogger),
		queue.WithConnectionTimeout(cfg.Broker.ConnectTimeout),
		queue.WithObserver(metrics),
	}

	if options.source != nil {
		connectionOpts = append(connectionOpts, queue.WithConfigSource(func() queue.Config {
			return options.source().Broker.QueueConfig(connectionName)
		}))
	}

	supervisor := queue.NewSupervisor(
		cfg.Broker.QueueConfig(connectionName),
		append(connectionOpts, options.connection...)...,
	)

	return &Broker{
		Supervisor: supervisor,
		Provisioner: queue.NewProvisioner(supervisor,
			queue.WithRecoveryDelay(cfg.Provisioning.RecoveryDelay),
			queue.WithProvisioningLogger(queueLogger),
			queue.WithProvisioningObserver(metrics),
		),
		Publisher: queue.NewPublisher(supervisor,
			queue.WithPublishingTimeout(cfg.Broker.PublishTimeout),
			queue.WithPublishingLogger(queueLogger),
		),
		Consumer: queue.NewConsumer(supervisor,
			queue.WithRetryStrategy(backoff.NewExponentialStrategy(cfg.Backoff)),
			queue.WithConsumerTagPrefix(cfg.Provisioning.ConsumerPrefix),
			queue.WithConsumingLogger(queueLogger),
		),
	}
}

// Connect establishes the first broker connection. Failure here is fatal for callers.
func (b *Broker) Connect(ctx context.Context) error {
	if err := b.Supervisor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	return nil
}

func (b *Broker) Close() error {
	return b.Supervisor.Close()
}

type (
	brokerOptions struct {
		connection []queue.ConnectionOption
		source     func() config.ServiceConfig
	}

	BrokerOption func(*brokerOptions)
)

// WithConnectionOptions appends options applied to the supervisor, such as a test dialer.
func WithConnectionOptions(opts ...queue.ConnectionOption) BrokerOption {
	return func(o *brokerOptions) {
		o.connection = append(o.connection, opts...)
	}
}

// WithConfigSource makes every reconnect read the broker settings from source, so that
// credentials rotated after start-up are used by the next connection.
func WithConfigSource(source func() config.ServiceConfig) BrokerOption {
	return func(o *brokerOptions) {
		o.source = source
	}
}
