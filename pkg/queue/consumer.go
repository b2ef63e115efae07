package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DeliveryHandler processes one delivery. It runs on the consuming goroutine, so a slow
// handler delays the next delivery.
type DeliveryHandler func(ctx context.Context, d Delivery)

// Consumer registers auto-acknowledging consumers on a set of queues and keeps them
// registered until its context ends.
//
// Deliveries are acknowledged by the broker on dispatch, so a message that is being handled
// when the process stops is lost.
type Consumer struct {
	acquirer  ChannelAcquirer
	retry     RetryStrategy
	tagPrefix string
	logger    Logger
}

// NewConsumer creates a consumer that registers on the long-lived channel of acquirer.
func NewConsumer(acquirer ChannelAcquirer, opts ...consumerOption) *Consumer {
	options := defaultConsumerOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Consumer{
		acquirer:  acquirer,
		retry:     options.retry,
		tagPrefix: options.tagPrefix,
		logger:    options.logger,
	}
}

// Run consumes from queues and calls handler for every delivery. When a delivery stream
// stops, Run waits according to its retry strategy, discards the long-lived channel and
// registers again. The connection is only replaced when it is dead. It returns only when ctx is done, with ctx.Err().
func (c *Consumer) Run(ctx context.Context, queues []string, handler DeliveryHandler) error {
	retries := 0

	for {
		err := c.consume(ctx, queues, handler, func() { retries = 0 })

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := c.retry.Backoff(retries)
		retries++

		c.logger.Warn().
			Err(err).
			Int("retry", retries).
			Dur("delay", delay).
			Msg("consuming interrupted, registering consumers again")

		c.acquirer.ResetChannel()

		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
	}
}

// consume runs one registration. It returns when ctx is done or any stream closes.
func (c *Consumer) consume(ctx context.Context, queues []string, handler DeliveryHandler, delivered func()) error {
	ch, err := c.acquirer.AcquireChannel(ctx)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)

	tags := make([]string, 0, len(queues))
	defer func() {
		cancel()

		for _, tag := range tags {
			if err := ch.Cancel(tag, false); err != nil {
				c.logger.Debug().Err(err).Str("consumer_tag", tag).Msg("cancelling consumer")
			}
		}
	}()

	merged := make(chan Delivery)
	stopped := make(chan string, len(queues))

	for _, queue := range queues {
		tag := c.tagPrefix + uuid.NewString()

		deliveries, err := ch.Consume(queue, tag, true, false, false, false, nil)
		if err != nil {
			return brokerError("consume", queue, err)
		}

		tags = append(tags, tag)

		go func(queue string) {
			for {
				select {
				case <-streamCtx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						stopped <- queue

						return
					}

					select {
					case merged <- newDelivery(queue, d):
					case <-streamCtx.Done():
						return
					}
				}
			}
		}(queue)

		c.logger.Info().Str("queue", queue).Str("consumer_tag", tag).Msg("consumer registered")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case queue := <-stopped:
			return fmt.Errorf("queue %q: %w", queue, ErrStreamInterrupted)
		case d := <-merged:
			delivered()
			handler(ctx, d)
		}
	}
}
