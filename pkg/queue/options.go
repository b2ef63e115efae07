package queue

import (
	"time"
)

type connectionOptions struct {
	timeout  *time.Duration
	dial     DialFunc
	source   ConfigSource
	logger   Logger
	observer Observer
}

type ConnectionOption func(options *connectionOptions)

// ConfigSource returns the configuration to use for the next dial.
type ConfigSource func() Config

// WithLogger returns a ConnectionOption which sets the logger when a connection is created.
func WithLogger(l Logger) ConnectionOption {
	return func(o *connectionOptions) {
		o.logger = l
	}
}

// WithConnectionTimeout returns a ConnectionOption which sets the timeout used when establishing a connection.
func WithConnectionTimeout(timeout time.Duration) ConnectionOption {
	return func(o *connectionOptions) {
		o.timeout = &timeout
	}
}

// WithDialer returns a ConnectionOption which replaces the function used to open connections.
func WithDialer(dial DialFunc) ConnectionOption {
	return func(o *connectionOptions) {
		o.dial = dial
	}
}

// WithConfigSource returns a ConnectionOption which makes every dial read its configuration
// from source instead of the Config given to NewSupervisor.
func WithConfigSource(source ConfigSource) ConnectionOption {
	return func(o *connectionOptions) {
		o.source = source
	}
}

// WithObserver returns a ConnectionOption which sets the observer notified of reconnects.
func WithObserver(observer Observer) ConnectionOption {
	return func(o *connectionOptions) {
		o.observer = observer
	}
}

func defaultConnectionOptions() connectionOptions {
	return connectionOptions{
		timeout:  &[]time.Duration{defaultDialTimeout}[0],
		dial:     DialAMQP,
		logger:   nopLogger{},
		observer: NoopObserver{},
	}
}

type provisionerOptions struct {
	recoveryDelay time.Duration
	logger        Logger
	observer      Observer
}

type provisionerOption func(*provisionerOptions)

const (
	conflictRecoveryDelay = 500 * time.Millisecond
)

// WithRecoveryDelay returns a provisionerOption which sets the pause between deleting a
// conflicting resource and declaring it again.
func WithRecoveryDelay(d time.Duration) provisionerOption {
	return func(o *provisionerOptions) {
		o.recoveryDelay = d
	}
}

// WithProvisioningLogger returns a provisionerOption which sets the logger used for declarations.
func WithProvisioningLogger(logger Logger) provisionerOption {
	return func(o *provisionerOptions) {
		o.logger = logger
	}
}

// WithProvisioningObserver returns a provisionerOption which sets the observer notified of conflict recoveries.
func WithProvisioningObserver(observer Observer) provisionerOption {
	return func(o *provisionerOptions) {
		o.observer = observer
	}
}

func defaultProvisionerOptions() provisionerOptions {
	return provisionerOptions{
		recoveryDelay: conflictRecoveryDelay,
		logger:        nopLogger{},
		observer:      NoopObserver{},
	}
}

// publisherOptions configure a NewPublisher call. publisherOptions are set by the publisherOption
// values passed to NewPublisher.
type publisherOptions struct {
	timeout time.Duration
	logger  Logger
}

type publisherOption func(options *publisherOptions)

const (
	publishingTimeout = 3 * time.Second
)

// WithPublishingTimeout returns a publisherOption which sets the timeout used when
// publishing the message.
func WithPublishingTimeout(d time.Duration) publisherOption {
	return func(o *publisherOptions) {
		o.timeout = d
	}
}

// WithPublishingLogger returns a publisherOption which sets the logger used when publishing.
func WithPublishingLogger(logger Logger) publisherOption {
	return func(o *publisherOptions) {
		o.logger = logger
	}
}

func defaultPublisherOptions() publisherOptions {
	return publisherOptions{
		timeout: publishingTimeout,
		logger:  nopLogger{},
	}
}

type consumerOptions struct {
	retry     RetryStrategy
	tagPrefix string
	logger    Logger
}

type consumerOption func(*consumerOptions)

// WithRetryStrategy returns a consumerOption which sets the delay policy applied before
// consumers are registered again after an interruption.
func WithRetryStrategy(retry RetryStrategy) consumerOption {
	return func(o *consumerOptions) {
		o.retry = retry
	}
}

// WithConsumerTagPrefix returns a consumerOption which prefixes every generated consumer tag.
func WithConsumerTagPrefix(prefix string) consumerOption {
	return func(o *consumerOptions) {
		o.tagPrefix = prefix
	}
}

// WithConsumingLogger returns a consumerOption which sets the logger when consuming messages.
func WithConsumingLogger(logger Logger) consumerOption {
	return func(o *consumerOptions) {
		o.logger = logger
	}
}

func defaultConsumerOptions() consumerOptions {
	return consumerOptions{
		retry:  ConstantRetry(time.Second),
		logger: nopLogger{},
	}
}
