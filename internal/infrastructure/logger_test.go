package infrastructure

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	componentLogger := logger.Component("supervisor")
	componentLogger.Debug().Str("queue", "alice").Msg("declared")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "supervisor", entry["component"])
	assert.Equal(t, "alice", entry["queue"])
	assert.Equal(t, "declared", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_Levels(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		level  string
		logged bool
	}{
		{name: "debug suppressed at info", level: "info", logged: false},
		{name: "debug emitted at debug", level: "DEBUG", logged: true},
		{name: "unknown level falls back to info", level: "verbose", logged: false},
		{name: "empty level falls back to info", level: "", logged: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewWithWriter(config.LoggingConfig{Level: tc.level, Format: "json"}, &buf)

			logger.Debug().Msg("probe")

			assert.Equal(t, tc.logged, buf.Len() > 0)
		})
	}
}

func TestNewWithWriter_ConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "console"}, &buf)

	logger.Info().Msg("connected")

	assert.Contains(t, buf.String(), "connected")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestLogger_Queue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Queue().Warn().Str("exchange", "news").Msg("conflict")

	assert.Contains(t, buf.String(), `"exchange":"news"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
