package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	var name string
	add := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				user, err := d.Users.HandleAdd(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), user)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Registered user %s (%s)\n", args[0], user.ID)
				return err
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")

	cmd.AddCommand(add)
	return cmd
}
