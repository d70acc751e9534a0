package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "resumedrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resumedrop",
		Short: "ResumeDrop file service CLI",
		Long: `ResumeDrop CLI checks and parses resume files locally, issues development tokens,
and drives the docker compose stack and service binaries during development.`,
		SilenceUsage: true,
	}
	stack := &stackOptions{}
	cmd.PersistentFlags().StringVarP(&stack.composeFile, "compose-file", "f", "docker-compose.yml", "Compose file to use for stack commands")
	cmd.AddCommand(
		newValidateCmd(),
		newParseCmd(),
		newRedactCmd(),
		newTokenCmd(),
		newBuildCmd(stack),
		newUpCmd(stack),
		newDownCmd(stack),
		newLogsCmd(stack),
		newTestCmd(),
		newRunCmd(),
	)
	return cmd
}
