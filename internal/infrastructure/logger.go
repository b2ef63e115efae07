package infrastructure

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/rs/zerolog"
)

const (
	logFormatJSON    = "json"
	logFormatConsole = "console"
)

type Logger struct {
	zerolog.Logger
}

// New builds the application logger from the logging settings. Unknown levels fall back to info.
func New(cfg config.LoggingConfig) Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(cfg config.LoggingConfig, out io.Writer) Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if !strings.EqualFold(cfg.Format, logFormatJSON) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return Logger{
		Logger: zerolog.New(out).Level(level).With().Timestamp().Logger(),
	}
}

// Component returns a child logger tagged with the component name.
func (l Logger) Component(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}

// Queue adapts the logger to the queue package.
func (l Logger) Queue() queue.Logger {
	return queue.NewLoggerAdapter(l.Logger)
}

// NewTestLogger discards everything.
func NewTestLogger() Logger {
	return Logger{Logger: zerolog.Nop()}
}
