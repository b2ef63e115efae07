package queue

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends text messages, each on its own short-lived channel.
type Publisher struct {
	opener  ChannelOpener
	timeout time.Duration
	logger  Logger
}

// NewPublisher creates a publisher that opens its channels from opener.
func NewPublisher(opener ChannelOpener, opts ...publisherOption) *Publisher {
	options := defaultPublisherOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Publisher{
		opener:  opener,
		timeout: options.timeout,
		logger:  options.logger,
	}
}

// Publish sends body to exchange with routingKey. The empty exchange is the broker's
// default exchange, which routes by queue name.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	ch, err := p.opener.OpenChannel(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := ch.Close(); closeErr != nil && !errors.Is(closeErr, amqp.ErrClosed) {
			p.logger.Debug().Err(closeErr).Msg("closing publishing channel")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, textPublishing(body)); err != nil {
		return brokerError("publish", exchange+"/"+routingKey, err)
	}

	p.logger.Debug().
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Int("size", len(body)).
		Msg("message published")

	return nil
}
