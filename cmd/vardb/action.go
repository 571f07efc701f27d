package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/variantdb-core/internal/application/handlers"
)

func newActionCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Propose, retract and authorise dual-control actions",
	}
	cmd.AddCommand(
		newActionProposeCmd(opts),
		newActionRetractCmd(opts),
		newActionAuthoriseCmd(opts),
		newActionStatusCmd(opts),
		newActionHistoryCmd(opts),
	)
	return cmd
}

func newActionProposeCmd(opts *globalOptions) *cobra.Command {
	var (
		req   handlers.ProposeRequest
		props string
	)

	cmd := &cobra.Command{
		Use:   "propose <kind> <subject>",
		Short: "Propose a pathogenicity call or panel membership",
		Long: `Proposes a new action awaiting authorisation by a second user.
Kinds: pathogenicity (subject is a variantId), panel-membership (subject is a panel name).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Kind, req.Subject = args[0], args[1]
			parsed, err := handlers.ParseProps(props)
			if err != nil {
				return err
			}
			req.Props = parsed
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Actions.HandlePropose(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printActionResult(cmd.OutOrStdout(), opts, "Proposed", result)
			})
		},
	}

	cmd.Flags().StringVarP(&req.User, "user", "u", "", "Proposing user id (required)")
	cmd.Flags().Int64VarP(&req.Classification, "classification", "c", 0, "Classification 1-5 (pathogenicity only)")
	cmd.Flags().StringVarP(&req.Evidence, "evidence", "e", "", "Supporting evidence")
	cmd.Flags().StringVar(&props, "props", "", "Extra action properties as a JSON object")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newActionRetractCmd(opts *globalOptions) *cobra.Command {
	var user, evidence string

	cmd := &cobra.Command{
		Use:   "retract <action-id>",
		Short: "Propose removal of an active action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Actions.HandleRetract(cmd.Context(), args[0], user, evidence)
				if err != nil {
					return err
				}
				return printActionResult(cmd.OutOrStdout(), opts, "Retraction proposed for", result)
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Retracting user id (required)")
	cmd.Flags().StringVarP(&evidence, "evidence", "e", "", "Reason for removal")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newActionAuthoriseCmd(opts *globalOptions) *cobra.Command {
	var user, stage string

	cmd := &cobra.Command{
		Use:     "authorise <action-id>",
		Aliases: []string{"authorize"},
		Short:   "Authorise a pending proposal or retraction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Actions.HandleAuthorise(cmd.Context(), args[0], stage, user)
				if err != nil {
					return err
				}
				return printActionResult(cmd.OutOrStdout(), opts, "Authorised", result)
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Authorising user id (required)")
	cmd.Flags().StringVar(&stage, "stage", "", "Stage to authorise (add, remove; default: inferred)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newActionStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <action-id>",
		Short: "Show an action's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Actions.HandleStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printActionResult(cmd.OutOrStdout(), opts, "Action", result)
			})
		},
	}
}

func newActionHistoryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <kind> <subject>",
		Short: "List a subject's actions with their audit trails",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				history, err := d.Actions.HandleHistory(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), history)
				}
				return formatActions(cmd.OutOrStdout(), history)
			})
		},
	}
}

func printActionResult(w io.Writer, opts *globalOptions, verb string, r *handlers.ActionResult) error {
	if opts.output == outputJSON {
		return writeJSON(w, r)
	}
	_, err := fmt.Fprintf(w, "%s %s: %s\n", verb, r.ID, r.Status)
	return err
}
