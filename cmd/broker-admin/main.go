package main

import (
	"context"
	"fmt"
	"os"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/runtime"
	"github.com/architeacher/amqp-messenger/internal/service"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "broker-admin",
		Short: "Provision and tear down messenger identities and topics",
		Long: `broker-admin manages the broker resources used by messenger: the direct queue and
topic inbox of every identity, and the fanout exchanges used as topics.
Connection settings are read from the environment (RABBITMQ_*).`,
		Version:       fmt.Sprintf("%s (commit: %s)", config.ServiceVersion, config.CommitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	identityCmd := &cobra.Command{
		Use:     "identity",
		Aliases: []string{"user"},
		Short:   "Manage identities",
	}

	identityCmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Declare the queues of an identity, or re-verify them",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				admin := newAdmin(cmd)

				return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
					return admin.Report(facade.CreateIdentity(ctx, args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Delete the queues of an identity and discard their messages",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				admin := newAdmin(cmd)

				return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
					return admin.Report(facade.RemoveIdentity(ctx, args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the identities known to the broker",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				admin := newAdmin(cmd)

				return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
					admin.PrintList(facade.ListIdentities(ctx))

					return nil
				})
			},
		},
	)

	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage topics",
	}

	topicCmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Declare a topic exchange",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				admin := newAdmin(cmd)

				return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
					return admin.Report(facade.CreateTopic(ctx, args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Delete a topic exchange and its bindings",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				admin := newAdmin(cmd)

				return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
					return admin.Report(facade.RemoveTopic(ctx, args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the topics known to the broker",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				admin := newAdmin(cmd)

				return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
					admin.PrintList(facade.ListTopics(ctx))

					return nil
				})
			},
		},
	)

	countCmd := &cobra.Command{
		Use:   "count <queue>",
		Short: "Print the number of messages waiting in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin := newAdmin(cmd)

			return admin.Run(cmd.Context(), func(ctx context.Context, facade *service.AdminFacade) error {
				count, exists, err := facade.CountQueueMessages(ctx, args[0])
				if err != nil {
					return err
				}

				if !exists {
					return fmt.Errorf("queue %q does not exist", args[0])
				}

				admin.Printf("%d\n", count)

				return nil
			})
		},
	}

	rootCmd.AddCommand(identityCmd, topicCmd, countCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func newAdmin(cmd *cobra.Command) *runtime.AdminCtx {
	return runtime.NewAdmin(runtime.WithAdminOutput(cmd.OutOrStdout()))
}
