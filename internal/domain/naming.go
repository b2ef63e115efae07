package domain

import (
	"fmt"
	"strings"
)

const (
	// TopicInboxSuffix is appended to an identity to name the queue its topic subscriptions feed.
	TopicInboxSuffix = "_topicos"
	// ReservedPrefix marks broker-internal resources.
	ReservedPrefix = "amq."

	// DefaultExchange is the nameless exchange that routes by queue name.
	DefaultExchange = ""

	maxNameLength = 255

	senderDelimiter = ":"
	topicClose      = "]"
)

// DirectQueue returns the queue receiving direct messages for identity.
func DirectQueue(identity string) string {
	return identity
}

// TopicInboxQueue returns the queue receiving topic messages for identity.
func TopicInboxQueue(identity string) string {
	return identity + TopicInboxSuffix
}

// IsTopicInbox reports whether name is a topic-inbox queue rather than an identity.
func IsTopicInbox(name string) bool {
	return strings.HasSuffix(name, TopicInboxSuffix)
}

// IsReserved reports whether name is the default exchange or a broker-internal resource.
func IsReserved(name string) bool {
	return name == DefaultExchange || strings.HasPrefix(name, ReservedPrefix)
}

// ValidateIdentityName checks that name can be used as an identity. Names appear as the
// sender of every envelope, so they must not contain the sender delimiter.
func ValidateIdentityName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return NewInvalidNameError("identity", name, "name is empty")
	case strings.HasPrefix(name, ReservedPrefix):
		return NewReservedNameError("identity", name)
	case IsTopicInbox(name):
		return NewInvalidNameError("identity", name, fmt.Sprintf("name must not end with %q", TopicInboxSuffix))
	case strings.Contains(name, senderDelimiter):
		return NewInvalidNameError("identity", name, fmt.Sprintf("name must not contain %q", senderDelimiter))
	case len(name) > maxNameLength:
		return NewInvalidNameError("identity", name, fmt.Sprintf("name exceeds %d bytes", maxNameLength))
	}

	return nil
}

// ValidateTopicName checks that name can be used as a topic exchange.
func ValidateTopicName(name string) error {
	switch {
	case IsReserved(name):
		return NewReservedNameError("topic", name)
	case strings.TrimSpace(name) == "":
		return NewInvalidNameError("topic", name, "name is blank")
	case strings.Contains(name, topicClose):
		return NewInvalidNameError("topic", name, fmt.Sprintf("name must not contain %q", topicClose))
	case len(name) > maxNameLength:
		return NewInvalidNameError("topic", name, fmt.Sprintf("name exceeds %d bytes", maxNameLength))
	}

	return nil
}
