package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/service"
	"github.com/google/uuid"
)

// MessengerCtx runs the console chat for one identity.
type MessengerCtx struct {
	identity string
	deps     *Dependencies
	client   *service.MessagingClient
	console  *Console

	in  io.Reader
	out io.Writer

	shutdownChannel chan os.Signal

	ctx        context.Context
	cancelFunc context.CancelFunc

	ready chan struct{}
}

func NewMessenger(identity string, opts ...MessengerOption) *MessengerCtx {
	mCtx := &MessengerCtx{
		identity:        identity,
		in:              os.Stdin,
		out:             os.Stdout,
		shutdownChannel: make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(mCtx)
	}

	return mCtx
}

// Run blocks until the user quits, the process is signalled or the input ends.
func (c *MessengerCtx) Run() error {
	if err := c.build(); err != nil {
		return err
	}

	c.start()
	c.monitorConfigChanges()
	c.shutdownHook()
	c.shutdown()

	return nil
}

// build connects to the broker and provisions the identity.
func (c *MessengerCtx) build() error {
	if err := domain.ValidateIdentityName(c.identity); err != nil {
		return err
	}

	c.ctx, c.cancelFunc = context.WithCancel(context.Background())

	connectionName := fmt.Sprintf("messenger-%s-%s", c.identity, uuid.NewString())

	deps, err := initializeDependencies(c.ctx, connectionName,
		WithBroker(c.ctx),
		WithSubscriptionStore(c.ctx),
		WithOpsServer(),
	)
	if err != nil {
		c.cancelFunc()

		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	c.deps = deps

	client, err := service.NewMessagingClient(c.ctx, c.identity, service.MessagingDependencies{
		Provisioner:   deps.Infra.Broker.Provisioner,
		Publisher:     deps.Infra.Broker.Publisher,
		Consumer:      deps.Infra.Broker.Consumer,
		Subscriptions: deps.Repos.SubscriptionRepo,
		Logger:        deps.logger,
		Metrics:       deps.Infra.Metrics,
	},
		service.WithQueueDurability(deps.cfg.Provisioning.DurableQueues),
		service.WithTopicDurability(deps.cfg.Provisioning.DurableTopics),
	)
	if err != nil {
		deps.logger.Error().Err(err).Str("identity", c.identity).Msg("unable to start messaging client")
		deps.Close(c.ctx)
		c.cancelFunc()

		return err
	}

	c.client = client
	c.console = NewConsole(client, deps.Adapters.Directory, c.out)

	return nil
}

// start launches the ops server, the receive loop and the command reader.
func (c *MessengerCtx) start() {
	if c.deps.Infra.OpsServer != nil {
		go func() {
			if err := c.deps.Infra.OpsServer.Start(c.ctx); err != nil {
				c.deps.logger.Error().Err(err).Msg("ops server failed")
			}
		}()
	}

	messages := c.client.Messages(c.ctx)

	go func() {
		for envelope := range messages {
			c.console.Display(c.ctx, envelope)
		}
	}()

	go func() {
		if err := c.console.Run(c.ctx, c.in); err != nil && !errors.Is(err, context.Canceled) {
			c.deps.logger.Error().Err(err).Msg("console input failed")
		}

		c.cancelFunc()
	}()

	c.deps.logger.Info().Str("identity", c.identity).Msg("messenger started")

	if c.ready != nil {
		close(c.ready)
	}
}

func (c *MessengerCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
}

func (c *MessengerCtx) monitorConfigChanges() {
	reloadErrors := c.deps.configLoader.WatchConfigSignals(c.ctx)

	go func() {
		for err := range reloadErrors {
			if err != nil {
				c.deps.logger.Error().Err(err).Msg("failed to reload config")
				continue
			}

			c.deps.logger.Info().Msg("config reloaded successfully")
		}

		c.deps.logger.Info().Msg("stopping config monitor")
	}()
}

func (c *MessengerCtx) shutdown() {
	// Waits for one of the following shutdown conditions to happen.
	select {
	case <-c.ctx.Done():
	case <-c.shutdownChannel:
		c.deps.logger.Info().Msg("received shutdown signal")
	}

	signal.Stop(c.shutdownChannel)

	// Cancel context that underlying processes would start cleanup.
	c.cancelFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.cfg.OpsServer.ShutdownTimeout)
	defer cancel()

	if err := c.client.Close(); err != nil {
		c.deps.logger.Error().Err(err).Msg("failed to close messaging client")
	}

	c.deps.Close(shutdownCtx)

	c.deps.logger.Info().Str("identity", c.identity).Msg("messenger stopped")
}

// WaitForReady blocks until the messenger is consuming. The messenger must be created with
// WithReadyNotification.
func (c *MessengerCtx) WaitForReady() {
	if c.ready != nil {
		<-c.ready
	}
}
