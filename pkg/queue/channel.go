package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used by this package.
//
//nolint:interfacebloat // mirrors the AMQP channel methods in use
type Channel interface {
	io.Closer

	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	ExchangeDelete(name string, ifUnused, noWait bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	IsClosed() bool
}

// Connection is the subset of *amqp.Connection used by the Supervisor.
type Connection interface {
	io.Closer

	Channel() (Channel, error)
	IsClosed() bool
}

// DialFunc opens a broker connection.
type DialFunc func(url string, cfg amqp.Config) (Connection, error)

// DialAMQP is the DialFunc backed by amqp091-go.
func DialAMQP(url string, cfg amqp.Config) (Connection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}

	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}

	return ch, nil
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

// ChannelWrapper serializes access to a long-lived channel shared between goroutines.
type ChannelWrapper struct {
	amqpChan Channel

	mutex  sync.Mutex
	closed atomic.Bool
}

// NewChannelWrapper wraps ch.
func NewChannelWrapper(ch Channel) *ChannelWrapper {
	return &ChannelWrapper{amqpChan: ch}
}

// Close closes the underlying channel. Closing twice is not an error.
func (ch *ChannelWrapper) Close() error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	if ch.closed.Swap(true) {
		return nil
	}

	if err := ch.amqpChan.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}

	return nil
}

// IsClosed reports whether the wrapper or the underlying channel has been closed.
func (ch *ChannelWrapper) IsClosed() bool {
	return ch.closed.Load() || ch.amqpChan.IsClosed()
}

//nolint:revive // This method has the same arguments as Channel.ExchangeDeclare from amqp091-go lib.
func (ch *ChannelWrapper) ExchangeDeclare(
	name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table,
) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (ch *ChannelWrapper) ExchangeDelete(name string, ifUnused, noWait bool) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.ExchangeDelete(name, ifUnused, noWait)
}

func (ch *ChannelWrapper) QueueDeclare(
	name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table,
) (amqp.Queue, error) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

func (ch *ChannelWrapper) QueueDeclarePassive(
	name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table,
) (amqp.Queue, error) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueDeclarePassive(name, durable, autoDelete, exclusive, noWait, args)
}

func (ch *ChannelWrapper) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueDelete(name, ifUnused, ifEmpty, noWait)
}

func (ch *ChannelWrapper) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueBind(name, key, exchange, noWait, args)
}

func (ch *ChannelWrapper) PublishWithContext(
	ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing,
) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

//nolint:revive // This method uses same number of arguments as amqp091 Channel.Consume.
func (ch *ChannelWrapper) Consume(
	queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table,
) (<-chan amqp.Delivery, error) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

func (ch *ChannelWrapper) Cancel(consumer string, noWait bool) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.Cancel(consumer, noWait)
}
