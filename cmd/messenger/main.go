package main

import (
	"fmt"
	"os"

	"github.com/architeacher/amqp-messenger/internal/config"
	"github.com/architeacher/amqp-messenger/internal/runtime"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "messenger <identity>",
		Short: "Chat over the broker as one identity",
		Long: `Messenger provisions the queues of an identity, re-applies its stored topic
subscriptions and opens a console to send direct messages and publish to topics.
Connection settings are read from the environment (RABBITMQ_*).`,
		Version:       fmt.Sprintf("%s (commit: %s)", config.ServiceVersion, config.CommitSHA),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runtime.NewMessenger(args[0],
				runtime.WithConsoleIO(cmd.InOrStdin(), cmd.OutOrStdout()),
			).Run()
		},
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}
