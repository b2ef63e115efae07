package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) ExchangeDelete(name string, ifUnused, noWait bool) error {
	return m.Called(name, ifUnused, noWait).Error(0)
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	callArgs := m.Called(name, durable, autoDelete, exclusive, noWait, args)

	return callArgs.Get(0).(amqp.Queue), callArgs.Error(1)
}

func (m *MockChannel) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	callArgs := m.Called(name, durable, autoDelete, exclusive, noWait, args)

	return callArgs.Get(0).(amqp.Queue), callArgs.Error(1)
}

func (m *MockChannel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error) {
	callArgs := m.Called(name, ifUnused, ifEmpty, noWait)

	return callArgs.Int(0), callArgs.Error(1)
}

func (m *MockChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return m.Called(name, key, exchange, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	callArgs := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, args)

	deliveries, _ := callArgs.Get(0).(chan amqp.Delivery)

	return deliveries, callArgs.Error(1)
}

func (m *MockChannel) Cancel(consumer string, noWait bool) error {
	return m.Called(consumer, noWait).Error(0)
}

func (m *MockChannel) IsClosed() bool {
	return m.Called().Bool(0)
}

// newIdleChannel returns a channel mock that only expects to be checked and closed.
func newIdleChannel() *MockChannel {
	ch := &MockChannel{}
	ch.On("IsClosed").Return(false).Maybe()
	ch.On("Close").Return(nil).Maybe()

	return ch
}

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Channel() (Channel, error) {
	args := m.Called()

	ch, _ := args.Get(0).(Channel)

	return ch, args.Error(1)
}

func (m *MockConnection) IsClosed() bool {
	return m.Called().Bool(0)
}

func (m *MockConnection) Close() error {
	return m.Called().Error(0)
}

// fakeDialer hands out the queued connections or errors in order.
type fakeDialer struct {
	mutex   sync.Mutex
	results []dialResult
	calls   int
	urls    []string
	configs []amqp.Config
}

type dialResult struct {
	conn Connection
	err  error
}

func (d *fakeDialer) dial(url string, cfg amqp.Config) (Connection, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.calls++
	d.urls = append(d.urls, url)
	d.configs = append(d.configs, cfg)

	if len(d.results) == 0 {
		return nil, amqp.ErrClosed
	}

	r := d.results[0]
	d.results = d.results[1:]

	return r.conn, r.err
}

func (d *fakeDialer) callCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.calls
}

// stubOpener hands out the queued channels in order.
type stubOpener struct {
	mutex    sync.Mutex
	channels []Channel
	err      error
	opened   int
}

func (o *stubOpener) OpenChannel(context.Context) (Channel, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.err != nil {
		return nil, o.err
	}

	o.opened++
	ch := o.channels[0]
	if len(o.channels) > 1 {
		o.channels = o.channels[1:]
	}

	return ch, nil
}

// stubAcquirer hands out the queued channels in order and counts resets.
type stubAcquirer struct {
	mutex    sync.Mutex
	channels []Channel
	resets   atomic.Int32
}

func (a *stubAcquirer) AcquireChannel(context.Context) (Channel, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	ch := a.channels[0]
	if len(a.channels) > 1 {
		a.channels = a.channels[1:]
	}

	return ch, nil
}

func (a *stubAcquirer) ResetChannel() {
	a.resets.Add(1)
}

type recordingObserver struct {
	mutex      sync.Mutex
	reconnects []error
	recoveries []error
}

func (o *recordingObserver) Reconnected(_ context.Context, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.reconnects = append(o.reconnects, err)
}

func (o *recordingObserver) ConflictRecovered(_ context.Context, _ ResourceKind, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.recoveries = append(o.recoveries, err)
}

const testTimeout = 2 * time.Second
