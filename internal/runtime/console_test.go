package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type (
	mockMessenger struct {
		mock.Mock

		mutex      sync.Mutex
		subscribed []string
	}

	staticDirectory struct {
		identities []string
		topics     []string
	}
)

func (m *mockMessenger) Identity() string {
	return "alice"
}

func (m *mockMessenger) SendDirect(ctx context.Context, target, body string) error {
	return m.Called(ctx, target, body).Error(0)
}

func (m *mockMessenger) PublishToTopic(ctx context.Context, topic, body string) error {
	return m.Called(ctx, topic, body).Error(0)
}

func (m *mockMessenger) Subscribe(ctx context.Context, topic string) error {
	if err := m.Called(ctx, topic).Error(0); err != nil {
		return err
	}

	m.mutex.Lock()
	m.subscribed = append(m.subscribed, topic)
	m.mutex.Unlock()

	return nil
}

func (m *mockMessenger) Subscriptions() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]string(nil), m.subscribed...)
}

func (m *mockMessenger) IsSubscribed(topic string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, subscribed := range m.subscribed {
		if subscribed == topic {
			return true
		}
	}

	return false
}

func (d staticDirectory) ListIdentities(context.Context) []string {
	return d.identities
}

func (d staticDirectory) ListTopics(context.Context) []string {
	return d.topics
}

func newTestConsole(messenger *mockMessenger) (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	directory := staticDirectory{
		identities: []string{"alice", "bob", "carol"},
		topics:     []string{"news", "sports"},
	}

	return NewConsole(messenger, directory, out), out
}

func TestConsole_Send(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{}
	messenger.On("SendDirect", mock.Anything, "bob", "hi there: friend").Return(nil).Once()

	console, out := newTestConsole(messenger)

	require.NoError(t, console.Execute(context.Background(), "/send bob hi there: friend"))
	assert.Equal(t, "you to bob: hi there: friend\n", out.String())
	messenger.AssertExpectations(t)
}

func TestConsole_UsageErrors(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{}
	console, _ := newTestConsole(messenger)

	for _, line := range []string{"/send bob", "/send", "/pub news", "/sub", "/wall", "/nope"} {
		assert.Error(t, console.Execute(context.Background(), line), line)
	}

	messenger.AssertNotCalled(t, "SendDirect", mock.Anything, mock.Anything, mock.Anything)
	messenger.AssertNotCalled(t, "PublishToTopic", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsole_SubscribeAndPublish(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{}
	messenger.On("Subscribe", mock.Anything, "news").Return(nil)
	messenger.On("PublishToTopic", mock.Anything, "news", "hello world").Return(nil)

	console, out := newTestConsole(messenger)

	require.NoError(t, console.Execute(context.Background(), "/sub news"))
	require.NoError(t, console.Execute(context.Background(), "/pub news hello world"))
	require.NoError(t, console.Execute(context.Background(), "/subs"))

	assert.Equal(t, "subscribed to news\npublished to news\nsubscriptions:\n  news\n", out.String())
}

func TestConsole_ListingsExcludeSelfAndMarkSubscriptions(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{subscribed: []string{"sports"}}
	console, out := newTestConsole(messenger)

	require.NoError(t, console.Execute(context.Background(), "/users"))
	require.NoError(t, console.Execute(context.Background(), "/topics"))

	assert.Equal(t, "users:\n  bob\n  carol\ntopics:\n  news\n  sports (subscribed)\n", out.String())
}

func TestConsole_Display(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{subscribed: []string{"news"}}
	console, out := newTestConsole(messenger)

	console.Display(context.Background(), domain.NewDirect("bob", "hi"))
	console.Display(context.Background(), domain.NewTopic("news", "carol", "breaking"))
	console.Display(context.Background(), domain.NewTopic("sports", "dave", "goal"))

	assert.Equal(t, "[direct from bob] hi\n[news]carol: breaking\n", out.String())
	assert.Equal(t, []string{"[news]carol: breaking"}, console.Wall("news"))
	assert.Empty(t, console.Wall("sports"))
}

func TestConsole_Wall(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{subscribed: []string{"news"}}
	console, out := newTestConsole(messenger)

	require.NoError(t, console.Execute(context.Background(), "/wall news"))
	assert.Equal(t, "[news] no messages yet\n", out.String())

	assert.ErrorContains(t, console.Execute(context.Background(), "/wall sports"), "subscribe")

	for i := range wallCapacity + 5 {
		console.Display(context.Background(), domain.NewTopic("news", "bob", fmt.Sprintf("m%d", i)))
	}

	wall := console.Wall("news")
	require.Len(t, wall, wallCapacity)
	assert.Equal(t, "[news]bob: m5", wall[0])
}

func TestConsole_Run(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{}
	messenger.On("SendDirect", mock.Anything, "bob", "hi").Return(nil)
	messenger.On("SendDirect", mock.Anything, "ghost", "hi").Return(errors.New("unroutable"))

	console, out := newTestConsole(messenger)

	in := strings.NewReader("/send bob hi\n\n/send ghost hi\n/quit\n/send bob never\n")

	require.NoError(t, console.Run(context.Background(), in))

	assert.Contains(t, out.String(), "you to bob: hi\n")
	assert.Contains(t, out.String(), "error: unroutable\n")
	messenger.AssertNumberOfCalls(t, "SendDirect", 2)
}

func TestConsole_RunStopsWithContext(t *testing.T) {
	t.Parallel()

	console, _ := newTestConsole(&mockMessenger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := console.Run(ctx, strings.NewReader(""))

	// Either branch may win the race; both end the loop.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
