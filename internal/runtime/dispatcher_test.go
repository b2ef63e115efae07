package runtime

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/stretchr/testify/require"
)

func TestNewMessenger(t *testing.T) {
	t.Parallel()

	t.Run("creates messenger context with default values", func(t *testing.T) {
		t.Parallel()

		messengerCtx := NewMessenger("alice")

		require.NotNil(t, messengerCtx)
		require.Equal(t, "alice", messengerCtx.identity)
		require.NotNil(t, messengerCtx.shutdownChannel)
		require.Equal(t, os.Stdin, messengerCtx.in)
		require.Nil(t, messengerCtx.deps)
		require.Nil(t, messengerCtx.ready)
	})

	t.Run("creates messenger context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		in := strings.NewReader("/quit\n")
		out := &bytes.Buffer{}

		messengerCtx := NewMessenger("alice",
			WithMessengerTermination(ch),
			WithConsoleIO(in, out),
			WithReadyNotification(),
		)

		require.Equal(t, ch, messengerCtx.shutdownChannel)
		require.Equal(t, in, messengerCtx.in)
		require.Equal(t, out, messengerCtx.out)
		require.NotNil(t, messengerCtx.ready)
	})

	t.Run("rejects an invalid identity before connecting", func(t *testing.T) {
		t.Parallel()

		err := NewMessenger("alice_topicos").Run()

		require.ErrorIs(t, err, domain.ErrInvalidName)
	})
}

func TestNewAdmin(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	adminCtx := NewAdmin(WithAdminOutput(out))

	adminCtx.PrintList([]string{"alice", "bob"})
	adminCtx.Printf("%d message(s)\n", 3)

	require.Equal(t, "alice\nbob\n3 message(s)\n", out.String())
}

func TestReport(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		result    domain.AdminResult
		wantErr   bool
		wantLines []string
	}{
		{
			name: "created",
			result: domain.AdminResult{
				Name:    "alice",
				Outcome: domain.OutcomeCreated,
				Message: `identity "alice" created`,
				Provisions: []queue.Provision{
					{Kind: queue.ResourceQueue, Name: "alice", Outcome: queue.OutcomeDeclared},
					{Kind: queue.ResourceQueue, Name: "alice_topicos", Outcome: queue.OutcomeRecovered},
				},
			},
			wantLines: []string{
				`created: identity "alice" created`,
				"  queue alice: declared",
				"  queue alice_topicos: recovered",
			},
		},
		{
			name: "failed",
			result: domain.AdminResult{
				Name:    "alice",
				Outcome: domain.OutcomeFailed,
				Message: `identity "alice" could not be provisioned`,
				Provisions: []queue.Provision{
					{Kind: queue.ResourceQueue, Name: "alice", Outcome: queue.OutcomeFailed, Err: errors.New("boom")},
				},
				Err: errors.New("boom"),
			},
			wantErr: true,
			wantLines: []string{
				`failed: identity "alice" could not be provisioned`,
				"  queue alice: failed (boom)",
			},
		},
		{
			name: "rejected",
			result: domain.AdminResult{
				Name:    "amq.direct",
				Outcome: domain.OutcomeRejected,
				Message: "not allowed",
			},
			wantErr:   true,
			wantLines: []string{"rejected: not allowed"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := &bytes.Buffer{}

			err := report(out, tc.result)

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, strings.Join(tc.wantLines, "\n")+"\n", out.String())
		})
	}
}
