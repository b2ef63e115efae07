package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_URL(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Scheme:   "amqp",
		Username: "guest",
		Password: "secret",
		Host:     "localhost",
		Port:     5672,
		Vhost:    "/",
	}

	assert.Contains(t, cfg.URL(), "guest:secret@localhost")
	assert.Contains(t, cfg.RedactedURL(), "guest:xxxxx@localhost")
	assert.NotContains(t, cfg.RedactedURL(), "secret")
}

func TestConfig_AmqpConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		heartbeat time.Duration
		expected  time.Duration
	}{
		{name: "default heartbeat", heartbeat: 0, expected: 60 * time.Second},
		{name: "custom heartbeat", heartbeat: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Config{Vhost: "/", Heartbeat: tt.heartbeat, ConnectionName: "messenger-alice"}
			amqpCfg := cfg.amqpConfig(time.Second)

			assert.Equal(t, tt.expected, amqpCfg.Heartbeat)
			assert.Equal(t, "/", amqpCfg.Vhost)
			assert.Equal(t, "messenger-alice", amqpCfg.Properties["connection_name"])
			assert.NotNil(t, amqpCfg.Dial)
		})
	}
}
