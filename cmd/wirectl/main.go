// Command wirectl inspects wire status events and provisions their topics.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := New().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// New returns the root command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wirectl [sub-command]",
		Short: "Inspect wire status events and manage their topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newDecodeCommand(), newTopicsCommand())
	return cmd
}
