package queue

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const textContentType = "text/plain"

// Delivery is a message received from one of the consumed queues.
type Delivery struct {
	Queue       string
	Exchange    string
	RoutingKey  string
	ConsumerTag string
	Body        []byte
	Timestamp   time.Time
	Redelivered bool
}

func newDelivery(queue string, d amqp.Delivery) Delivery {
	return Delivery{
		Queue:       queue,
		Exchange:    d.Exchange,
		RoutingKey:  d.RoutingKey,
		ConsumerTag: d.ConsumerTag,
		Body:        d.Body,
		Timestamp:   d.Timestamp,
		Redelivered: d.Redelivered,
	}
}

func textPublishing(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  textContentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
}
