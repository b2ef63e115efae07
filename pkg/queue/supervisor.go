package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// link is one connection together with its long-lived channel. The channel is nil after
// ResetChannel until the next acquisition.
type link struct {
	conn    Connection
	channel *ChannelWrapper
}

func (l *link) alive() bool {
	return l != nil && l.conn != nil && !l.conn.IsClosed()
}

func (l *link) healthy() bool {
	return l.alive() && l.channel != nil && !l.channel.IsClosed()
}

// Supervisor owns one broker connection and its long-lived channel. A failed connection is
// re-established lazily: the next caller that needs a channel runs exactly one reconnect
// sequence, and a failure leaves the supervisor disconnected until someone asks again.
//
// Connection changes are serialized; State never waits for them.
type Supervisor struct {
	config   Config
	source   ConfigSource
	dial     DialFunc
	timeout  time.Duration
	logger   Logger
	observer Observer

	mutex  sync.Mutex
	link   atomic.Pointer[link]
	state  atomic.Int32
	closed bool
}

// NewSupervisor creates a supervisor for cfg. No connection is made until Connect or
// the first channel request.
func NewSupervisor(cfg Config, opts ...ConnectionOption) *Supervisor {
	options := defaultConnectionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	s := &Supervisor{
		config:   cfg,
		source:   options.source,
		dial:     options.dial,
		timeout:  *options.timeout,
		logger:   options.logger,
		observer: options.observer,
	}

	s.state.Store(int32(StateDisconnected))

	return s
}

// Connect establishes the connection and its long-lived channel.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return ErrSupervisorClosed
	}

	if s.link.Load().healthy() {
		return nil
	}

	return s.connectLocked(ctx, "connect")
}

// AcquireChannel returns the long-lived channel. A missing or closed channel is reopened on
// the live connection; a dead connection is replaced by one reconnect attempt.
func (s *Supervisor) AcquireChannel(ctx context.Context) (Channel, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, ErrSupervisorClosed
	}

	current := s.link.Load()
	if current.healthy() {
		return current.channel, nil
	}

	if current.alive() {
		ch, err := current.conn.Channel()
		if err == nil {
			wrapper := NewChannelWrapper(ch)
			s.link.Store(&link{conn: current.conn, channel: wrapper})
			s.state.Store(int32(StateConnected))

			s.logger.Info().Msg("long-lived channel reopened")

			return wrapper, nil
		}

		s.logger.Warn().Err(err).Msg("failed to reopen channel, reconnecting")
	}

	if err := s.reconnectLocked(ctx); err != nil {
		return nil, err
	}

	return s.link.Load().channel, nil
}

// OpenChannel opens a fresh channel on the live connection. The caller must close it.
func (s *Supervisor) OpenChannel(ctx context.Context) (Channel, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, ErrSupervisorClosed
	}

	if !s.link.Load().alive() {
		if err := s.reconnectLocked(ctx); err != nil {
			return nil, err
		}
	}

	ch, err := s.link.Load().conn.Channel()
	if err == nil {
		return ch, nil
	}

	s.logger.Warn().Err(err).Msg("failed to open channel, reconnecting")

	if err := s.reconnectLocked(ctx); err != nil {
		return nil, err
	}

	ch, err = s.link.Load().conn.Channel()
	if err != nil {
		s.dropLocked()

		return nil, &ConnectionError{Op: "open channel", URL: s.currentConfig().RedactedURL(), Attempts: 1, Err: err}
	}

	return ch, nil
}

// ResetChannel discards the long-lived channel so that the next AcquireChannel opens a new
// one. The connection, and every channel opened on it, stays untouched unless it is
// already dead.
func (s *Supervisor) ResetChannel() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current := s.link.Load()
	if current == nil {
		return
	}

	if !current.alive() {
		s.dropLocked()

		return
	}

	if current.channel != nil {
		_ = current.channel.Close()
	}

	s.link.Store(&link{conn: current.conn})
}

// State returns the current connection state without waiting for a dial in progress.
func (s *Supervisor) State() ConnectionState {
	state := ConnectionState(s.state.Load())

	if state == StateConnected && !s.link.Load().alive() {
		return StateDisconnected
	}

	return state
}

// Close closes the channel and the connection. Subsequent calls are no-ops.
func (s *Supervisor) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var errs []error

	if current := s.link.Swap(nil); current != nil {
		if current.channel != nil {
			errs = append(errs, current.channel.Close())
		}

		if current.alive() {
			if err := current.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, err)
			}
		}
	}

	s.state.Store(int32(StateDisconnected))

	s.logger.Info().Msg("broker connection closed")

	return errors.Join(errs...)
}

// currentConfig returns the configuration to dial with, asking the source when one is set
// so that rotated credentials reach the next reconnect.
func (s *Supervisor) currentConfig() Config {
	if s.source != nil {
		return s.source()
	}

	return s.config
}

func (s *Supervisor) reconnectLocked(ctx context.Context) error {
	s.logger.Info().Str("url", s.currentConfig().RedactedURL()).Msg("reconnecting to broker")

	err := s.connectLocked(ctx, "reconnect")
	s.observer.Reconnected(ctx, err)

	return err
}

func (s *Supervisor) connectLocked(ctx context.Context, op string) error {
	s.dropLocked()
	s.state.Store(int32(StateConnecting))

	cfg := s.currentConfig()
	url := cfg.RedactedURL()

	conn, err := s.dialContext(ctx, cfg)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		s.logger.Error().Err(err).Str("url", url).Msg("failed to connect to broker")

		return &ConnectionError{Op: op, URL: url, Attempts: 1, Err: err}
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		s.state.Store(int32(StateDisconnected))
		s.logger.Error().Err(err).Str("url", url).Msg("failed to open channel")

		return &ConnectionError{Op: op, URL: url, Attempts: 1, Err: err}
	}

	s.link.Store(&link{conn: conn, channel: NewChannelWrapper(ch)})
	s.state.Store(int32(StateConnected))

	s.logger.Info().Str("url", url).Msg("successfully connected to broker")

	return nil
}

// dialContext dials in the background so that ctx can abandon a slow handshake.
func (s *Supervisor) dialContext(ctx context.Context, cfg Config) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		conn Connection
		err  error
	}

	done := make(chan result, 1)
	go func() {
		conn, err := s.dial(cfg.URL(), cfg.amqpConfig(s.timeout))
		done <- result{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()

		return nil, ctx.Err()
	case r := <-done:
		return r.conn, r.err
	}
}

func (s *Supervisor) dropLocked() {
	if current := s.link.Swap(nil); current != nil {
		if current.channel != nil {
			_ = current.channel.Close()
		}

		if current.alive() {
			_ = current.conn.Close()
		}
	}

	s.state.Store(int32(StateDisconnected))
}
