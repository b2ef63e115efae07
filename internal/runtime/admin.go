package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/architeacher/amqp-messenger/internal/domain"
	"github.com/architeacher/amqp-messenger/internal/service"
	"github.com/google/uuid"
)

type (
	// AdminTask is one operator action run against a connected façade.
	AdminTask func(ctx context.Context, facade *service.AdminFacade) error

	// AdminCtx runs operator tasks. Every Run connects, seeds the façade and disconnects.
	AdminCtx struct {
		out io.Writer
	}
)

func NewAdmin(opts ...AdminOption) *AdminCtx {
	aCtx := &AdminCtx{
		out: os.Stdout,
	}

	for _, opt := range opts {
		opt(aCtx)
	}

	return aCtx
}

func (c *AdminCtx) Run(ctx context.Context, task AdminTask) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectionName := fmt.Sprintf("broker-admin-%s", uuid.NewString())

	deps, err := initializeDependencies(ctx, connectionName, WithBroker(ctx))
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	defer deps.Close(context.WithoutCancel(ctx))

	facade := service.NewAdminFacade(
		ctx,
		deps.Infra.Broker.Provisioner,
		deps.Adapters.Directory,
		deps.logger,
		deps.Infra.Metrics,
		service.WithAdminQueueDurability(deps.cfg.Provisioning.DurableQueues),
		service.WithAdminTopicDurability(deps.cfg.Provisioning.DurableTopics),
	)

	return task(ctx, facade)
}

// Report prints result and turns an unsuccessful outcome into an error for the exit status.
func (c *AdminCtx) Report(result domain.AdminResult) error {
	return report(c.out, result)
}

// PrintList prints one name per line.
func (c *AdminCtx) PrintList(names []string) {
	for _, name := range names {
		_, _ = fmt.Fprintln(c.out, name)
	}
}

func (c *AdminCtx) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func report(out io.Writer, result domain.AdminResult) error {
	_, _ = fmt.Fprintf(out, "%s: %s\n", result.Outcome, result.Message)

	for _, prov := range result.Provisions {
		line := fmt.Sprintf("  %s %s: %s", prov.Kind, prov.Name, prov.Outcome)
		if prov.Err != nil {
			line += fmt.Sprintf(" (%v)", prov.Err)
		}

		_, _ = fmt.Fprintln(out, line)
	}

	if result.Succeeded() {
		return nil
	}

	if result.Err != nil {
		return fmt.Errorf("%s %q: %w", result.Outcome, result.Name, result.Err)
	}

	return fmt.Errorf("%s %q", result.Outcome, result.Name)
}
