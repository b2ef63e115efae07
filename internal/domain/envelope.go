package domain

import (
	"fmt"
	"strings"
)

const (
	directPrefix = "PRIVADO:"
	topicOpen    = "["
)

// EnvelopeKind tells direct messages from topic messages.
type EnvelopeKind int

const (
	KindUnknown EnvelopeKind = iota
	KindDirect
	KindTopic
)

func (k EnvelopeKind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindTopic:
		return "topic"
	default:
		return "unknown"
	}
}

// Envelope is a message as carried on the wire.
//
// A direct message is encoded as "PRIVADO:<sender>:<body>" and a topic message as
// "[<topic>]<sender>: <body>". Decoding splits on the first delimiter only, so the body may
// contain ':' while sender names may not.
type Envelope struct {
	Kind   EnvelopeKind
	Topic  string
	Sender string
	Body   string
	// Raw is the text as received; empty for envelopes built locally.
	Raw string
}

// NewDirect builds a direct message envelope.
func NewDirect(sender, body string) Envelope {
	return Envelope{Kind: KindDirect, Sender: sender, Body: body}
}

// NewTopic builds a topic message envelope.
func NewTopic(topic, sender, body string) Envelope {
	return Envelope{Kind: KindTopic, Topic: topic, Sender: sender, Body: body}
}

// Encode returns the wire text of the envelope. Unknown envelopes encode to their raw text.
func (e Envelope) Encode() string {
	switch e.Kind {
	case KindDirect:
		return directPrefix + e.Sender + senderDelimiter + e.Body
	case KindTopic:
		return topicOpen + e.Topic + topicClose + e.Sender + senderDelimiter + " " + e.Body
	default:
		return e.Raw
	}
}

// String renders the envelope for display.
func (e Envelope) String() string {
	switch e.Kind {
	case KindDirect:
		return fmt.Sprintf("[direct from %s] %s", e.Sender, e.Body)
	case KindTopic:
		return e.Encode()
	default:
		return e.Raw
	}
}

// ParseEnvelope decodes wire text. Text that carries neither marker is returned as a
// KindUnknown envelope without error; text that carries a marker but not the fields that
// follow it yields ErrMalformedEnvelope.
func ParseEnvelope(raw string) (Envelope, error) {
	switch {
	case strings.HasPrefix(raw, directPrefix):
		sender, body, ok := strings.Cut(strings.TrimPrefix(raw, directPrefix), senderDelimiter)
		if !ok {
			return unknownEnvelope(raw), NewMalformedEnvelopeError(raw, "missing sender delimiter")
		}

		return Envelope{Kind: KindDirect, Sender: sender, Body: body, Raw: raw}, nil

	case strings.HasPrefix(raw, topicOpen) && strings.Contains(raw, topicClose):
		topic, rest, _ := strings.Cut(strings.TrimPrefix(raw, topicOpen), topicClose)

		sender, body, ok := strings.Cut(rest, senderDelimiter)
		if !ok {
			return unknownEnvelope(raw), NewMalformedEnvelopeError(raw, "missing sender delimiter")
		}

		return Envelope{
			Kind:   KindTopic,
			Topic:  topic,
			Sender: sender,
			Body:   strings.TrimPrefix(body, " "),
			Raw:    raw,
		}, nil
	}

	return unknownEnvelope(raw), nil
}

func unknownEnvelope(raw string) Envelope {
	return Envelope{Kind: KindUnknown, Body: raw, Raw: raw}
}
