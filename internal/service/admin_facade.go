package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/infrastructure"
	"github.com/architeacher/amqp-messenger/internal/ports"
	"github.com/architeacher/amqp-messenger/pkg/queue"
	"github.com/samber/lo"
)

const (
	opCreateIdentity = "create_identity"
	opRemoveIdentity = "remove_identity"
	opCreateTopic    = "create_topic"
	opRemoveTopic    = "remove_topic"
)

type (
	// AdminFacade provisions and tears down identities and topics for operators. It keeps a
	// membership cache of the identities it knows; the cache is not synchronized, so one
	// goroutine owns a façade.
	AdminFacade struct {
		provisioner   ports.ResourceProvisioner
		directory     ports.Directory
		membership    *domain.Membership
		logger        infrastructure.Logger
		metrics       infrastructure.Metrics
		durableQueues bool
		durableTopics bool
	}

	AdminOption func(*AdminFacade)
)

func WithAdminQueueDurability(durable bool) AdminOption {
	return func(a *AdminFacade) {
		a.durableQueues = durable
	}
}

func WithAdminTopicDurability(durable bool) AdminOption {
	return func(a *AdminFacade) {
		a.durableTopics = durable
	}
}

// NewAdminFacade seeds the membership cache with the identities the directory lists.
func NewAdminFacade(
	ctx context.Context,
	provisioner ports.ResourceProvisioner,
	directory ports.Directory,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	opts ...AdminOption,
) *AdminFacade {
	if metrics == nil {
		metrics = &infrastructure.NoOpMetrics{}
	}

	a := &AdminFacade{
		provisioner:   provisioner,
		directory:     directory,
		logger:        logger.Component("admin"),
		metrics:       metrics,
		durableQueues: true,
		durableTopics: true,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.membership = domain.NewMembership(directory.ListIdentities(ctx)...)

	a.logger.Info().Int("identities", a.membership.Len()).Msg("membership cache seeded")

	return a
}

// CreateIdentity declares the direct queue and the topic inbox of name. Creating a known
// identity again re-verifies its queues.
func (a *AdminFacade) CreateIdentity(ctx context.Context, name string) domain.AdminResult {
	if err := domain.ValidateIdentityName(name); err != nil {
		return a.record(ctx, opCreateIdentity, domain.AdminResult{
			Name:    name,
			Outcome: domain.OutcomeRejected,
			Message: err.Error(),
			Err:     err,
		})
	}

	known := a.membership.Contains(name)

	provisions := make([]queue.Provision, 0, 2)
	errs := make([]error, 0, 2)

	for _, queueName := range []string{domain.DirectQueue(name), domain.TopicInboxQueue(name)} {
		prov, err := a.provisioner.DeclareQueue(ctx, queueName, a.durableQueues)
		provisions = append(provisions, prov)

		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.Error().Err(err).Str("identity", name).Msg("failed to provision identity")

		return a.record(ctx, opCreateIdentity, domain.AdminResult{
			Name:       name,
			Outcome:    domain.OutcomeFailed,
			Message:    fmt.Sprintf("identity %q could not be provisioned", name),
			Provisions: provisions,
			Err:        err,
		})
	}

	a.membership.Add(name)

	result := domain.AdminResult{
		Name:       name,
		Outcome:    domain.OutcomeCreated,
		Message:    fmt.Sprintf("identity %q created", name),
		Provisions: provisions,
	}

	if known {
		result.Outcome = domain.OutcomeReverified
		result.Message = fmt.Sprintf("identity %q already exists, queues re-verified", name)
	}

	if recovered(provisions) {
		result.Message += "; conflicting queues were recreated and their messages discarded"
	}

	a.logger.Info().Str("identity", name).Str("outcome", string(result.Outcome)).Msg(result.Message)

	return a.record(ctx, opCreateIdentity, result)
}

// RemoveIdentity deletes both queues of name independently and forgets the identity even
// when a deletion fails. Names that cannot be identities, such as topic inboxes, are
// rejected without contacting the broker.
func (a *AdminFacade) RemoveIdentity(ctx context.Context, name string) domain.AdminResult {
	if err := domain.ValidateIdentityName(name); err != nil {
		return a.record(ctx, opRemoveIdentity, domain.AdminResult{
			Name:    name,
			Outcome: domain.OutcomeRejected,
			Message: err.Error(),
			Err:     err,
		})
	}

	var (
		errs   []error
		purged int
	)

	for _, queueName := range []string{domain.DirectQueue(name), domain.TopicInboxQueue(name)} {
		count, err := a.provisioner.DeleteQueue(ctx, queueName)
		if err != nil {
			a.logger.Warn().Err(err).Str("identity", name).Str("queue", queueName).Msg("failed to delete queue")
			errs = append(errs, err)

			continue
		}

		purged += count
	}

	a.membership.Remove(name)

	result := domain.AdminResult{
		Name:    name,
		Outcome: domain.OutcomeRemoved,
		Message: fmt.Sprintf("identity %q removed, %d pending message(s) discarded", name, purged),
		Err:     errors.Join(errs...),
	}

	switch len(errs) {
	case 0:
	case 1:
		result.Outcome = domain.OutcomePartiallyRemoved
		result.Message = fmt.Sprintf("identity %q partially removed: %v", name, result.Err)
	default:
		result.Outcome = domain.OutcomeFailed
		result.Message = fmt.Sprintf("identity %q could not be removed from the broker: %v", name, result.Err)
	}

	return a.record(ctx, opRemoveIdentity, result)
}

// CreateTopic declares name as a fanout exchange. Reserved names are rejected.
func (a *AdminFacade) CreateTopic(ctx context.Context, name string) domain.AdminResult {
	if err := domain.ValidateTopicName(name); err != nil {
		return a.record(ctx, opCreateTopic, domain.AdminResult{
			Name:    name,
			Outcome: domain.OutcomeRejected,
			Message: err.Error(),
			Err:     err,
		})
	}

	prov, err := a.provisioner.DeclareExchange(ctx, name, topicExchangeKind, a.durableTopics)
	if err != nil {
		a.logger.Error().Err(err).Str("topic", name).Msg("failed to create topic")

		return a.record(ctx, opCreateTopic, domain.AdminResult{
			Name:       name,
			Outcome:    domain.OutcomeFailed,
			Message:    fmt.Sprintf("topic %q could not be created: %v", name, err),
			Provisions: []queue.Provision{prov},
			Err:        err,
		})
	}

	result := domain.AdminResult{
		Name:       name,
		Outcome:    domain.OutcomeCreated,
		Message:    fmt.Sprintf("topic %q created", name),
		Provisions: []queue.Provision{prov},
	}

	if prov.Outcome == queue.OutcomeRecovered {
		result.Message += "; the conflicting exchange was recreated and its bindings dropped"
	}

	return a.record(ctx, opCreateTopic, result)
}

// RemoveTopic deletes the exchange name. The empty name and reserved names are rejected
// without contacting the broker.
func (a *AdminFacade) RemoveTopic(ctx context.Context, name string) domain.AdminResult {
	if domain.IsReserved(name) {
		err := domain.NewReservedNameError("topic", name)

		return a.record(ctx, opRemoveTopic, domain.AdminResult{
			Name:    name,
			Outcome: domain.OutcomeRejected,
			Message: fmt.Sprintf("removing topic %q is not allowed: it belongs to the broker", name),
			Err:     err,
		})
	}

	if err := a.provisioner.DeleteExchange(ctx, name); err != nil {
		a.logger.Error().Err(err).Str("topic", name).Msg("failed to remove topic")

		return a.record(ctx, opRemoveTopic, domain.AdminResult{
			Name:    name,
			Outcome: domain.OutcomeFailed,
			Message: fmt.Sprintf("topic %q could not be removed: %v", name, err),
			Err:     err,
		})
	}

	return a.record(ctx, opRemoveTopic, domain.AdminResult{
		Name:    name,
		Outcome: domain.OutcomeRemoved,
		Message: fmt.Sprintf("topic %q removed", name),
	})
}

// CountQueueMessages returns the number of ready messages in queue name. The boolean is
// false, with a nil error, when the queue does not exist.
func (a *AdminFacade) CountQueueMessages(ctx context.Context, name string) (int, bool, error) {
	stats, err := a.provisioner.InspectQueue(ctx, name)
	if errors.Is(err, queue.ErrQueueNotFound) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("count messages of %q: %w", name, err)
	}

	return stats.Messages, true, nil
}

func (a *AdminFacade) ListIdentities(ctx context.Context) []string {
	return a.directory.ListIdentities(ctx)
}

func (a *AdminFacade) ListTopics(ctx context.Context) []string {
	return a.directory.ListTopics(ctx)
}

// Members returns the cached identities in sorted order.
func (a *AdminFacade) Members() []string {
	return a.membership.Names()
}

func (a *AdminFacade) record(ctx context.Context, operation string, result domain.AdminResult) domain.AdminResult {
	a.metrics.RecordAdminOperation(ctx, operation, string(result.Outcome))

	return result
}

func recovered(provisions []queue.Provision) bool {
	return lo.ContainsBy(provisions, func(prov queue.Provision) bool {
		return prov.Outcome == queue.OutcomeRecovered
	})
}
