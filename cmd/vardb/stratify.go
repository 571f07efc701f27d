package main

import (
	"github.com/spf13/cobra"
)

func newStratifyCmd(opts *globalOptions) *cobra.Command {
	var runID, panel string

	cmd := &cobra.Command{
		Use:   "stratify",
		Short: "Bucket a run's panel variants for clinical review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Stratify.Handle(cmd.Context(), runID, panel)
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				return formatStratification(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVarP(&runID, "run", "r", "", "Run analysis id (required)")
	cmd.Flags().StringVarP(&panel, "panel", "p", "", "Virtual panel name (required)")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("panel")

	return cmd
}
