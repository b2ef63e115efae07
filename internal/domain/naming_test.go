package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice", DirectQueue("alice"))
	assert.Equal(t, "alice_topicos", TopicInboxQueue("alice"))
	assert.True(t, IsTopicInbox(TopicInboxQueue("alice")))
	assert.False(t, IsTopicInbox(DirectQueue("alice")))
}

func TestIsReserved(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected bool
	}{
		{name: "", expected: true},
		{name: "amq.direct", expected: true},
		{name: "amq.foo", expected: true},
		{name: "news", expected: false},
		{name: "xamq.news", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, IsReserved(tt.name))
		})
	}
}

func TestValidateIdentityName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		identity string
		expected error
	}{
		{name: "valid", identity: "alice"},
		{name: "valid with punctuation", identity: "alice.smith-2"},
		{name: "empty", identity: "", expected: ErrInvalidName},
		{name: "blank", identity: "   ", expected: ErrInvalidName},
		{name: "reserved prefix", identity: "amq.alice", expected: ErrReservedName},
		{name: "inbox suffix", identity: "alice_topicos", expected: ErrInvalidName},
		{name: "sender delimiter", identity: "ali:ce", expected: ErrInvalidName},
		{name: "too long", identity: strings.Repeat("a", 256), expected: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateIdentityName(tt.identity)
			if tt.expected == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestValidateTopicName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		topic    string
		expected error
	}{
		{name: "valid", topic: "news"},
		{name: "empty", topic: "", expected: ErrReservedName},
		{name: "reserved prefix", topic: "amq.fanout", expected: ErrReservedName},
		{name: "blank", topic: " ", expected: ErrInvalidName},
		{name: "closing bracket", topic: "news]", expected: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateTopicName(tt.topic)
			if tt.expected == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.expected)

			var domainErr *DomainError
			assert.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.topic, domainErr.Details["name"])
		})
	}
}
