// Package queue provides the broker side of the messenger: a connection supervisor,
// a resource provisioner with conflict recovery, a publisher and a consume loop, all
// built on the RabbitMQ AMQP 0-9-1 client.
//
// # Overview
//
// A Supervisor owns one connection and one long-lived channel. It never reconnects in the
// background; whoever needs a channel next triggers a single reconnect attempt and gets a
// *ConnectionError when the broker cannot be reached.
//
// Provisioner and Publisher work on fresh channels obtained from the Supervisor, one per
// operation, because the broker closes a channel after a channel-level exception such as
// PRECONDITION_FAILED. Consumer registers on the long-lived channel.
//
// # Basic Usage
//
//	config := queue.Config{
//		Scheme:   "amqp",
//		Username: "guest",
//		Password: "guest",
//		Host:     "localhost",
//		Port:     5672,
//		Vhost:    "/",
//	}
//
//	supervisor := queue.NewSupervisor(config, queue.WithLogger(logger))
//	if err := supervisor.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer supervisor.Close()
//
//	provisioner := queue.NewProvisioner(supervisor)
//	if _, err := provisioner.DeclareQueue(ctx, "alice", true); err != nil {
//		log.Fatal(err)
//	}
//
//	publisher := queue.NewPublisher(supervisor)
//	err := publisher.Publish(ctx, "", "alice", []byte("hello"))
//
//	consumer := queue.NewConsumer(supervisor)
//	err = consumer.Run(ctx, []string{"alice"}, func(ctx context.Context, d queue.Delivery) {
//		log.Printf("%s: %s", d.Queue, d.Body)
//	})
//
// # Conflict Recovery
//
// Declaring a queue or exchange whose existing attributes differ (for example a transient
// queue declared again as durable) fails with PRECONDITION_FAILED. The Provisioner then
// deletes the resource, waits a short recovery delay and declares it again. The recovered
// resource matches the requested attributes; everything the old one held is gone. If the
// recovery fails the error is an *UnrecoverableConflictError.
//
// # Error Handling
//
//   - *ConnectionError: the broker is unreachable
//   - *BrokerError: an operation failed and may succeed when retried
//   - *ConflictError: attribute mismatch, wrapped by *UnrecoverableConflictError when recovery fails
//
// Use IsConnectionError, IsTransient, IsConflict and IsUnrecoverable to classify errors.
//
// # Logging Integration
//
// The package defines a minimal logging interface. NewLoggerAdapter adapts a zerolog logger.
package queue
