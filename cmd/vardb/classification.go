package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClassificationCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classification <variant-id>",
		Short: "Show a variant's current classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Classification.Handle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d)\n", result.VariantID, result.Name, result.Classification)
				return err
			})
		},
	}
}
