package queue

import (
	"context"
	"time"
)

// ChannelOpener opens short-lived channels. The caller closes every channel it receives.
type ChannelOpener interface {
	OpenChannel(ctx context.Context) (Channel, error)
}

// ChannelAcquirer hands out the long-lived channel of a connection and can discard it
// so that the next acquisition opens a new one.
type ChannelAcquirer interface {
	AcquireChannel(ctx context.Context) (Channel, error)
	ResetChannel()
}

// Broker is the connection surface shared by provisioning, publishing and consuming.
type Broker interface {
	ChannelOpener
	ChannelAcquirer

	Connect(ctx context.Context) error
	State() ConnectionState
	Close() error
}

// Observer is notified of connection and provisioning events, typically to record metrics.
type Observer interface {
	Reconnected(ctx context.Context, err error)
	ConflictRecovered(ctx context.Context, kind ResourceKind, err error)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) Reconnected(context.Context, error)                     {}
func (NoopObserver) ConflictRecovered(context.Context, ResourceKind, error) {}

// RetryStrategy computes the pause before the given retry, counted from zero.
type RetryStrategy interface {
	Backoff(retries int) time.Duration
}

// ConstantRetry waits the same amount before every retry.
type ConstantRetry time.Duration

func (c ConstantRetry) Backoff(int) time.Duration {
	return time.Duration(c)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
