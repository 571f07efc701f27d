package main

import (
	"github.com/spf13/cobra"
)

func newPendingCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List actions and events awaiting a second user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				report, err := d.Pending.Handle(cmd.Context())
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				return formatPending(cmd.OutOrStdout(), report)
			})
		},
	}
}
