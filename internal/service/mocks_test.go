package service

import (
	"context"

	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/stretchr/testify/mock"
)

type (
	mockProvisioner struct {
		mock.Mock
	}

	mockPublisher struct {
		mock.Mock
	}

	mockSubscriptions struct {
		mock.Mock
	}

	mockDirectory struct {
		mock.Mock
	}

	// fakeConsumer hands the configured deliveries to the handler, then blocks until ctx ends.
	fakeConsumer struct {
		deliveries []queue.Delivery
		queues     chan []string
	}
)

func (m *mockProvisioner) DeclareQueue(ctx context.Context, name string, durable bool) (queue.Provision, error) {
	args := m.Called(ctx, name, durable)

	return args.Get(0).(queue.Provision), args.Error(1)
}

func (m *mockProvisioner) DeclareExchange(ctx context.Context, name, kind string, durable bool) (queue.Provision, error) {
	args := m.Called(ctx, name, kind, durable)

	return args.Get(0).(queue.Provision), args.Error(1)
}

func (m *mockProvisioner) BindQueue(ctx context.Context, queueName, exchange string) error {
	return m.Called(ctx, queueName, exchange).Error(0)
}

func (m *mockProvisioner) DeleteQueue(ctx context.Context, name string) (int, error) {
	args := m.Called(ctx, name)

	return args.Int(0), args.Error(1)
}

func (m *mockProvisioner) DeleteExchange(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockProvisioner) InspectQueue(ctx context.Context, name string) (queue.QueueStats, error) {
	args := m.Called(ctx, name)

	return args.Get(0).(queue.QueueStats), args.Error(1)
}

func (m *mockPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return m.Called(ctx, exchange, routingKey, string(body)).Error(0)
}

func (m *mockSubscriptions) Find(ctx context.Context, identity string) ([]string, error) {
	args := m.Called(ctx, identity)

	topics, _ := args.Get(0).([]string)

	return topics, args.Error(1)
}

func (m *mockSubscriptions) Save(ctx context.Context, identity, topic string) error {
	return m.Called(ctx, identity, topic).Error(0)
}

func (m *mockDirectory) ListIdentities(ctx context.Context) []string {
	return m.Called(ctx).Get(0).([]string)
}

func (m *mockDirectory) ListTopics(ctx context.Context) []string {
	return m.Called(ctx).Get(0).([]string)
}

func newFakeConsumer(deliveries ...queue.Delivery) *fakeConsumer {
	return &fakeConsumer{
		deliveries: deliveries,
		queues:     make(chan []string, 1),
	}
}

func (f *fakeConsumer) Run(ctx context.Context, queues []string, handler queue.DeliveryHandler) error {
	f.queues <- queues

	for _, delivery := range f.deliveries {
		handler(ctx, delivery)
	}

	<-ctx.Done()

	return ctx.Err()
}

func declared(kind queue.ResourceKind, name string) queue.Provision {
	return queue.Provision{Kind: kind, Name: name, Durable: true, Outcome: queue.OutcomeDeclared}
}
