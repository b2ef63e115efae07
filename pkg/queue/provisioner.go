package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultExchangeKind = "fanout"

// ResourceKind names the kind of broker resource a provisioning step acts on.
type ResourceKind string

const (
	ResourceQueue    ResourceKind = "queue"
	ResourceExchange ResourceKind = "exchange"
)

// ProvisionOutcome describes how a declaration ended.
type ProvisionOutcome string

const (
	OutcomeDeclared  ProvisionOutcome = "declared"
	OutcomeRecovered ProvisionOutcome = "recovered"
	OutcomeFailed    ProvisionOutcome = "failed"
)

// Provision is the result of one declaration.
type Provision struct {
	Kind    ResourceKind
	Name    string
	Durable bool
	Outcome ProvisionOutcome
	Err     error
}

// QueueStats is the passive view of a queue.
type QueueStats struct {
	Name      string
	Messages  int
	Consumers int
}

// Provisioner declares, binds, inspects and deletes broker resources. Every operation uses
// its own channel because the broker closes a channel after a channel-level exception.
//
// A declaration that conflicts with an existing resource is recovered by deleting the
// resource and declaring it again. Recovery discards the messages the resource held.
type Provisioner struct {
	opener        ChannelOpener
	recoveryDelay time.Duration
	logger        Logger
	observer      Observer
}

// NewProvisioner creates a provisioner that opens its channels from opener.
func NewProvisioner(opener ChannelOpener, opts ...provisionerOption) *Provisioner {
	options := defaultProvisionerOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Provisioner{
		opener:        opener,
		recoveryDelay: options.recoveryDelay,
		logger:        options.logger,
		observer:      options.observer,
	}
}

// DeclareQueue declares a non-exclusive, non-auto-delete queue.
func (p *Provisioner) DeclareQueue(ctx context.Context, name string, durable bool) (Provision, error) {
	declare := func(ch Channel) error {
		_, err := ch.QueueDeclare(name, durable, false, false, false, nil)

		return err
	}

	remove := func(ch Channel) error {
		_, err := ch.QueueDelete(name, false, false, false)

		return err
	}

	return p.declare(ctx, Provision{Kind: ResourceQueue, Name: name, Durable: durable}, declare, remove)
}

// DeclareExchange declares a non-auto-delete exchange. An empty kind declares a fanout exchange.
func (p *Provisioner) DeclareExchange(ctx context.Context, name, kind string, durable bool) (Provision, error) {
	if kind == "" {
		kind = defaultExchangeKind
	}

	declare := func(ch Channel) error {
		return ch.ExchangeDeclare(name, kind, durable, false, false, false, nil)
	}

	remove := func(ch Channel) error {
		return ch.ExchangeDelete(name, false, false)
	}

	return p.declare(ctx, Provision{Kind: ResourceExchange, Name: name, Durable: durable}, declare, remove)
}

// BindQueue binds queue to exchange with an empty routing key.
func (p *Provisioner) BindQueue(ctx context.Context, queue, exchange string) error {
	err := p.withChannel(ctx, func(ch Channel) error {
		return ch.QueueBind(queue, "", exchange, false, nil)
	})

	return brokerError("bind queue", fmt.Sprintf("%s->%s", exchange, queue), err)
}

// DeleteQueue deletes a queue and returns the number of messages it held.
func (p *Provisioner) DeleteQueue(ctx context.Context, name string) (int, error) {
	var purged int

	err := p.withChannel(ctx, func(ch Channel) error {
		var err error
		purged, err = ch.QueueDelete(name, false, false, false)

		return err
	})
	if err != nil {
		return 0, brokerError("delete queue", name, err)
	}

	p.logger.Info().Str("queue", name).Int("purged", purged).Msg("queue deleted")

	return purged, nil
}

// DeleteExchange deletes an exchange together with its bindings.
func (p *Provisioner) DeleteExchange(ctx context.Context, name string) error {
	err := p.withChannel(ctx, func(ch Channel) error {
		return ch.ExchangeDelete(name, false, false)
	})
	if err != nil {
		return brokerError("delete exchange", name, err)
	}

	p.logger.Info().Str("exchange", name).Msg("exchange deleted")

	return nil
}

// InspectQueue passively declares a queue to read its depth. It returns ErrQueueNotFound
// when the queue does not exist.
func (p *Provisioner) InspectQueue(ctx context.Context, name string) (QueueStats, error) {
	stats := QueueStats{Name: name}

	err := p.withChannel(ctx, func(ch Channel) error {
		q, err := ch.QueueDeclarePassive(name, false, false, false, false, nil)
		if err != nil {
			return err
		}

		stats.Messages = q.Messages
		stats.Consumers = q.Consumers

		return nil
	})

	switch {
	case err == nil:
		return stats, nil
	case isNotFound(err):
		return stats, fmt.Errorf("inspect queue %q: %w", name, ErrQueueNotFound)
	default:
		return stats, brokerError("inspect queue", name, err)
	}
}

func (p *Provisioner) declare(
	ctx context.Context, prov Provision, declare, remove func(Channel) error,
) (Provision, error) {
	err := p.withChannel(ctx, declare)
	if err == nil {
		prov.Outcome = OutcomeDeclared
		p.logger.Debug().Str(string(prov.Kind), prov.Name).Msg("resource declared")

		return prov, nil
	}

	if !isPreconditionFailed(err) {
		prov.Outcome = OutcomeFailed
		prov.Err = brokerError("declare "+string(prov.Kind), prov.Name, err)

		return prov, prov.Err
	}

	conflict := &ConflictError{Kind: prov.Kind, Resource: prov.Name, Err: err}

	p.logger.Warn().
		Err(err).
		Str(string(prov.Kind), prov.Name).
		Msg("declaration conflicts with the existing resource, deleting and redeclaring it; its contents are lost")

	recoveryErr := p.recover(ctx, declare, remove)
	p.observer.ConflictRecovered(ctx, prov.Kind, recoveryErr)

	if recoveryErr != nil {
		prov.Outcome = OutcomeFailed
		prov.Err = &UnrecoverableConflictError{Conflict: conflict, RecoveryErr: recoveryErr}

		p.logger.Error().Err(recoveryErr).Str(string(prov.Kind), prov.Name).Msg("conflict recovery failed")

		return prov, prov.Err
	}

	prov.Outcome = OutcomeRecovered
	p.logger.Info().Str(string(prov.Kind), prov.Name).Msg("resource redeclared after conflict")

	return prov, nil
}

func (p *Provisioner) recover(ctx context.Context, declare, remove func(Channel) error) error {
	if err := p.withChannel(ctx, remove); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := sleepContext(ctx, p.recoveryDelay); err != nil {
		return err
	}

	if err := p.withChannel(ctx, declare); err != nil {
		return fmt.Errorf("redeclare: %w", err)
	}

	return nil
}

func (p *Provisioner) withChannel(ctx context.Context, fn func(Channel) error) error {
	ch, err := p.opener.OpenChannel(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := ch.Close(); closeErr != nil && !errors.Is(closeErr, amqp.ErrClosed) {
			p.logger.Debug().Err(closeErr).Msg("closing provisioning channel")
		}
	}()

	return fn(ch)
}
