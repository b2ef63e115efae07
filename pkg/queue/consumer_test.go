package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type deliveryRecorder struct {
	mutex      sync.Mutex
	deliveries []Delivery
	received   chan struct{}
}

func newDeliveryRecorder() *deliveryRecorder {
	return &deliveryRecorder{received: make(chan struct{}, 16)}
}

func (r *deliveryRecorder) handle(_ context.Context, d Delivery) {
	r.mutex.Lock()
	r.deliveries = append(r.deliveries, d)
	r.mutex.Unlock()

	r.received <- struct{}{}
}

func (r *deliveryRecorder) wait(t *testing.T, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		select {
		case <-r.received:
		case <-time.After(testTimeout):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}
}

func (r *deliveryRecorder) bodies() map[string][]string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make(map[string][]string)
	for _, d := range r.deliveries {
		out[d.Queue] = append(out[d.Queue], string(d.Body))
	}

	return out
}

func TestConsumer_Run(t *testing.T) {
	t.Parallel()

	direct := make(chan amqp.Delivery, 2)
	inbox := make(chan amqp.Delivery, 1)

	direct <- amqp.Delivery{Body: []byte("PRIVADO:bob:one")}
	direct <- amqp.Delivery{Body: []byte("PRIVADO:bob:two")}
	inbox <- amqp.Delivery{Exchange: "news", Body: []byte("[news]bob: hello")}

	ch := newIdleChannel()
	ch.On("Consume", "alice", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(direct, nil).Once()
	ch.On("Consume", "alice_topicos", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(inbox, nil).Once()
	ch.On("Cancel", mock.AnythingOfType("string"), false).Return(nil).Twice()

	acquirer := &stubAcquirer{channels: []Channel{ch}}
	consumer := NewConsumer(acquirer)
	recorder := newDeliveryRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- consumer.Run(ctx, []string{"alice", "alice_topicos"}, recorder.handle)
	}()

	recorder.wait(t, 3)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(testTimeout):
		t.Fatal("consumer did not stop")
	}

	bodies := recorder.bodies()
	assert.Equal(t, []string{"PRIVADO:bob:one", "PRIVADO:bob:two"}, bodies["alice"])
	assert.Equal(t, []string{"[news]bob: hello"}, bodies["alice_topicos"])
	assert.Equal(t, int32(0), acquirer.resets.Load())
	ch.AssertExpectations(t)
}

func TestConsumer_RunReregistersAfterInterruption(t *testing.T) {
	t.Parallel()

	broken := make(chan amqp.Delivery)
	close(broken)

	first := newIdleChannel()
	first.On("Consume", "alice", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(broken, nil).Once()
	first.On("Cancel", mock.AnythingOfType("string"), false).Return(amqp.ErrClosed).Once()

	resumed := make(chan amqp.Delivery, 1)
	resumed <- amqp.Delivery{Body: []byte("PRIVADO:bob:back")}

	second := newIdleChannel()
	second.On("Consume", "alice", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(resumed, nil).Once()
	second.On("Cancel", mock.AnythingOfType("string"), false).Return(nil).Once()

	acquirer := &stubAcquirer{channels: []Channel{first, second}}
	consumer := NewConsumer(acquirer, WithRetryStrategy(ConstantRetry(time.Millisecond)), WithConsumerTagPrefix("alice-"))
	recorder := newDeliveryRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- consumer.Run(ctx, []string{"alice"}, recorder.handle)
	}()

	recorder.wait(t, 1)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int32(1), acquirer.resets.Load())
	assert.Equal(t, []string{"PRIVADO:bob:back"}, recorder.bodies()["alice"])

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	tag := second.Calls[0].Arguments.String(1)
	assert.Contains(t, tag, "alice-")
}

func TestConsumer_RunStopsWhenCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	broken := make(chan amqp.Delivery)
	close(broken)

	ch := newIdleChannel()
	ch.On("Consume", "alice", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(broken, nil)
	ch.On("Cancel", mock.AnythingOfType("string"), false).Return(nil)

	acquirer := &stubAcquirer{channels: []Channel{ch}}
	consumer := NewConsumer(acquirer, WithRetryStrategy(ConstantRetry(time.Hour)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := consumer.Run(ctx, []string{"alice"}, func(context.Context, Delivery) {})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), acquirer.resets.Load())
}

func TestConsumer_InterruptionKeepsSharedConnection(t *testing.T) {
	t.Parallel()

	cancelled := make(chan amqp.Delivery)
	close(cancelled)

	first := newIdleChannel()
	first.On("Consume", "alice", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(cancelled, nil).Once()
	first.On("Cancel", mock.AnythingOfType("string"), false).Return(nil).Maybe()

	published := newIdleChannel()

	resumed := make(chan amqp.Delivery, 1)
	resumed <- amqp.Delivery{Body: []byte("PRIVADO:bob:still here")}

	second := newIdleChannel()
	second.On("Consume", "alice", mock.AnythingOfType("string"), true, false, false, false, mock.Anything).Return(resumed, nil).Once()
	second.On("Cancel", mock.AnythingOfType("string"), false).Return(nil).Maybe()

	conn := newLiveConnection(first, published, second)
	dialer := &fakeDialer{results: []dialResult{{conn: conn}}}

	supervisor := NewSupervisor(Config{}, WithDialer(dialer.dial))
	require.NoError(t, supervisor.Connect(context.Background()))

	publishing, err := supervisor.OpenChannel(context.Background())
	require.NoError(t, err)
	require.Same(t, published, publishing)

	consumer := NewConsumer(supervisor, WithRetryStrategy(ConstantRetry(time.Millisecond)))
	recorder := newDeliveryRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- consumer.Run(ctx, []string{"alice"}, recorder.handle)
	}()

	recorder.wait(t, 1)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{"PRIVADO:bob:still here"}, recorder.bodies()["alice"])
	assert.Equal(t, 1, dialer.callCount())
	assert.Equal(t, StateConnected, supervisor.State())
	conn.AssertNotCalled(t, "Close")
	published.AssertNotCalled(t, "Close")
	first.AssertCalled(t, "Close")
}
