package ports

import (
	"context"

	"github.com/architeacher/amqp-messenger/pkg/queue"
)

type (
	// ResourceProvisioner declares and removes broker resources.
	ResourceProvisioner interface {
		DeclareQueue(ctx context.Context, name string, durable bool) (queue.Provision, error)
		DeclareExchange(ctx context.Context, name, kind string, durable bool) (queue.Provision, error)
		BindQueue(ctx context.Context, queue, exchange string) error
		DeleteQueue(ctx context.Context, name string) (int, error)
		DeleteExchange(ctx context.Context, name string) error
		InspectQueue(ctx context.Context, name string) (queue.QueueStats, error)
	}

	MessagePublisher interface {
		Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	}

	// MessageConsumer blocks delivering messages from queues to handler until ctx ends.
	MessageConsumer interface {
		Run(ctx context.Context, queues []string, handler queue.DeliveryHandler) error
	}

	ConnectionStater interface {
		State() queue.ConnectionState
	}
)
