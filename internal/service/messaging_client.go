package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/infrastructure"
	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/architeacher/amqp-messenger/pkg/queue"
)

const (
	messagesBufferSize = 64
	topicExchangeKind  = "fanout"
)

type (
	// MessageHandler receives every decoded envelope on the consume loop goroutine.
	MessageHandler func(ctx context.Context, envelope domain.Envelope)

	MessagingDependencies struct {
		Provisioner   ports.ResourceProvisioner
		Publisher     ports.MessagePublisher
		Consumer      ports.MessageConsumer
		Subscriptions ports.SubscriptionRepository
		Logger        infrastructure.Logger
		Metrics       infrastructure.Metrics
	}

	// MessagingClient is one identity's view of the broker: it owns the identity's direct
	// queue and topic inbox, publishes on its behalf and consumes its messages.
	MessagingClient struct {
		identity      string
		provisioner   ports.ResourceProvisioner
		publisher     ports.MessagePublisher
		consumer      ports.MessageConsumer
		subscriptions ports.SubscriptionRepository
		logger        infrastructure.Logger
		metrics       infrastructure.Metrics
		durableQueues bool
		durableTopics bool

		mutex      sync.Mutex
		state      domain.ClientState
		subscribed []string
	}

	ClientOption func(*MessagingClient)
)

// WithQueueDurability sets whether the identity queues survive a broker restart.
func WithQueueDurability(durable bool) ClientOption {
	return func(c *MessagingClient) {
		c.durableQueues = durable
	}
}

// WithTopicDurability sets whether topic exchanges survive a broker restart.
func WithTopicDurability(durable bool) ClientOption {
	return func(c *MessagingClient) {
		c.durableTopics = durable
	}
}

// NewMessagingClient provisions the queues of identity and re-applies its stored
// subscriptions. A broker that cannot be reached yields a *queue.ConnectionError.
func NewMessagingClient(
	ctx context.Context,
	identity string,
	deps MessagingDependencies,
	opts ...ClientOption,
) (*MessagingClient, error) {
	if err := domain.ValidateIdentityName(identity); err != nil {
		return nil, err
	}

	c := &MessagingClient{
		identity:      identity,
		provisioner:   deps.Provisioner,
		publisher:     deps.Publisher,
		consumer:      deps.Consumer,
		subscriptions: deps.Subscriptions,
		logger:        deps.Logger.Component("messaging_client"),
		metrics:       deps.Metrics,
		durableQueues: true,
		durableTopics: true,
		state:         domain.ClientStateUninitialized,
		subscribed:    make([]string, 0),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = &infrastructure.NoOpMetrics{}
	}

	if err := c.provision(ctx); err != nil {
		return nil, err
	}

	c.restoreSubscriptions(ctx)

	return c, nil
}

func (c *MessagingClient) Identity() string {
	return c.identity
}

func (c *MessagingClient) State() domain.ClientState {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state
}

// Subscriptions returns the topics subscribed through this client, in subscription order.
func (c *MessagingClient) Subscriptions() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return slices.Clone(c.subscribed)
}

// IsSubscribed reports whether topic was subscribed through this client.
func (c *MessagingClient) IsSubscribed(topic string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return slices.Contains(c.subscribed, topic)
}

// SendDirect publishes body to the direct queue of target through the default exchange.
func (c *MessagingClient) SendDirect(ctx context.Context, target, body string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	if err := domain.ValidateIdentityName(target); err != nil {
		return err
	}

	envelope := domain.NewDirect(c.identity, body)

	err := c.publish(ctx, domain.KindDirect, domain.DefaultExchange, domain.DirectQueue(target), envelope)
	if err != nil {
		c.logger.Error().Err(err).Str("identity", c.identity).Str("queue", target).Msg("failed to send direct message")

		return fmt.Errorf("send direct message to %q: %w", target, err)
	}

	return nil
}

// PublishToTopic declares the topic exchange, recovering from attribute conflicts, and
// publishes body to it.
func (c *MessagingClient) PublishToTopic(ctx context.Context, topic, body string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	if err := domain.ValidateTopicName(topic); err != nil {
		return err
	}

	if _, err := c.provisioner.DeclareExchange(ctx, topic, topicExchangeKind, c.durableTopics); err != nil {
		c.logger.Error().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("failed to declare topic")

		return fmt.Errorf("declare topic %q: %w", topic, err)
	}

	envelope := domain.NewTopic(topic, c.identity, body)

	if err := c.publish(ctx, domain.KindTopic, topic, "", envelope); err != nil {
		c.logger.Error().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("failed to publish to topic")

		return fmt.Errorf("publish to topic %q: %w", topic, err)
	}

	return nil
}

// Subscribe binds the topic inbox of the identity to topic and stores the subscription.
// Messages published to topic before this call are not delivered.
func (c *MessagingClient) Subscribe(ctx context.Context, topic string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	if err := domain.ValidateTopicName(topic); err != nil {
		return err
	}

	if err := c.bind(ctx, topic); err != nil {
		return err
	}

	if c.subscriptions != nil {
		if err := c.subscriptions.Save(ctx, c.identity, topic); err != nil {
			c.logger.Warn().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("failed to store subscription")
		}
	}

	c.logger.Info().Str("identity", c.identity).Str("topic", topic).Msg("subscribed to topic")

	return nil
}

// ReceiveMessages consumes the direct queue and the topic inbox, calling handler for each
// message on the calling goroutine. A body that is neither a direct nor a topic envelope is
// logged and still handed over, as a KindUnknown envelope carrying the raw text. Messages
// are acknowledged on delivery, so a message is lost if the process stops while handling it. Interrupted streams are re-established with
// backoff until ctx is cancelled, at which point ctx.Err() is returned.
func (c *MessagingClient) ReceiveMessages(ctx context.Context, handler MessageHandler) error {
	if err := c.transition(domain.ClientStateProvisioned, domain.ClientStateConsuming); err != nil {
		return err
	}

	defer func() {
		_ = c.transition(domain.ClientStateConsuming, domain.ClientStateProvisioned)
	}()

	queues := []string{domain.DirectQueue(c.identity), domain.TopicInboxQueue(c.identity)}

	c.logger.Info().Str("identity", c.identity).Strs("queues", queues).Msg("receiving messages")

	return c.consumer.Run(ctx, queues, func(ctx context.Context, delivery queue.Delivery) {
		envelope, err := domain.ParseEnvelope(string(delivery.Body))
		if err != nil {
			c.logger.Warn().Err(err).Str("identity", c.identity).Str("queue", delivery.Queue).Msg("received malformed message")
		}

		c.metrics.RecordDelivery(ctx, envelope.Kind.String())

		handler(ctx, envelope)
	})
}

// Messages runs ReceiveMessages in the background and forwards envelopes to the returned
// channel, which is closed once ctx ends.
func (c *MessagingClient) Messages(ctx context.Context) <-chan domain.Envelope {
	out := make(chan domain.Envelope, messagesBufferSize)

	go func() {
		defer close(out)

		err := c.ReceiveMessages(ctx, func(ctx context.Context, envelope domain.Envelope) {
			select {
			case out <- envelope:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Str("identity", c.identity).Msg("message stream stopped")
		}
	}()

	return out
}

// Close marks the client closed. The broker connection belongs to the caller.
func (c *MessagingClient) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.state = domain.ClientStateClosed

	return nil
}

func (c *MessagingClient) provision(ctx context.Context) error {
	for _, name := range []string{domain.DirectQueue(c.identity), domain.TopicInboxQueue(c.identity)} {
		prov, err := c.provisioner.DeclareQueue(ctx, name, c.durableQueues)
		if err != nil {
			c.logger.Error().Err(err).Str("identity", c.identity).Str("queue", name).Msg("failed to provision queue")

			if queue.IsConnectionError(err) {
				return err
			}

			return domain.NewNotProvisionedError(c.identity, err)
		}

		c.logger.Debug().Str("queue", name).Str("outcome", string(prov.Outcome)).Msg("queue provisioned")
	}

	return c.transition(domain.ClientStateUninitialized, domain.ClientStateProvisioned)
}

func (c *MessagingClient) restoreSubscriptions(ctx context.Context) {
	if c.subscriptions == nil {
		return
	}

	topics, err := c.subscriptions.Find(ctx, c.identity)
	if err != nil {
		c.logger.Warn().Err(err).Str("identity", c.identity).Msg("failed to load stored subscriptions")

		return
	}

	for _, topic := range topics {
		if err := domain.ValidateTopicName(topic); err != nil {
			c.logger.Warn().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("skipping stored subscription")

			continue
		}

		if err := c.bind(ctx, topic); err != nil {
			c.logger.Warn().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("failed to restore subscription")

			continue
		}

		c.logger.Info().Str("identity", c.identity).Str("topic", topic).Msg("subscription restored")
	}
}

func (c *MessagingClient) bind(ctx context.Context, topic string) error {
	if _, err := c.provisioner.DeclareExchange(ctx, topic, topicExchangeKind, c.durableTopics); err != nil {
		c.logger.Error().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("failed to declare topic")

		return fmt.Errorf("declare topic %q: %w", topic, err)
	}

	if err := c.provisioner.BindQueue(ctx, domain.TopicInboxQueue(c.identity), topic); err != nil {
		c.logger.Error().Err(err).Str("identity", c.identity).Str("topic", topic).Msg("failed to bind topic inbox")

		return fmt.Errorf("subscribe to topic %q: %w", topic, err)
	}

	c.mutex.Lock()
	if !slices.Contains(c.subscribed, topic) {
		c.subscribed = append(c.subscribed, topic)
	}
	c.mutex.Unlock()

	return nil
}

func (c *MessagingClient) publish(
	ctx context.Context,
	kind domain.EnvelopeKind,
	exchange, routingKey string,
	envelope domain.Envelope,
) error {
	startTime := time.Now()

	err := c.publisher.Publish(ctx, exchange, routingKey, []byte(envelope.Encode()))

	c.metrics.RecordPublish(ctx, kind.String(), err == nil, time.Since(startTime))

	return err
}

func (c *MessagingClient) ensureOpen() error {
	if c.State() == domain.ClientStateClosed {
		return domain.ErrClientClosed
	}

	return nil
}

func (c *MessagingClient) transition(from, to domain.ClientState) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state == domain.ClientStateClosed {
		return domain.ErrClientClosed
	}

	if c.state != from {
		return &domain.InvalidStateTransitionError{From: string(c.state), To: string(to)}
	}

	c.state = to

	return nil
}
