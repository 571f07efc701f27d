// Package main provides the entry point for the vardb CLI application.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	dir    string
	output string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describeError(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "vardb",
		Short:         "Dual-control variant classification and panel ledger",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutput(opts.output)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", "", "Project directory containing .vardb (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format (table, json)")

	rootCmd.AddCommand(
		newInitCmd(opts),
		newImportCmd(opts),
		newUsersCmd(opts),
		newActionCmd(opts),
		newEventCmd(opts),
		newClassificationCmd(opts),
		newStratifyCmd(opts),
		newPendingCmd(opts),
		newWorkflowsCmd(opts),
	)

	return rootCmd
}
