package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/variantdb-core/internal/application/handlers"
	"github.com/ersonp/variantdb-core/internal/domain/entities"
)

func newEventCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Append and resolve events on a subject's chain",
	}
	cmd.AddCommand(
		newEventAppendCmd(opts),
		newEventResolveCmd(opts, "authorise", "Authorise a pending event"),
		newEventResolveCmd(opts, "reject", "Reject a pending event"),
		newEventStatusCmd(opts),
		newEventSubjectCmd(opts),
		newEventChainCmd(opts),
	)
	return cmd
}

func newEventAppendCmd(opts *globalOptions) *cobra.Command {
	var (
		req   handlers.AppendRequest
		props string
	)

	cmd := &cobra.Command{
		Use:   "append <subject-type> <subject>",
		Short: "Append a pending event",
		Long:  "Appends an event to the subject's chain. Subject types: Variant, Feature, Symbol, VirtualPanel.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SubjectType, req.Subject = args[0], args[1]
			parsed, err := handlers.ParseProps(props)
			if err != nil {
				return err
			}
			req.Props = parsed
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Events.HandleAppend(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printEventResult(cmd.OutOrStdout(), opts, "Appended", result)
			})
		},
	}

	cmd.Flags().StringVarP(&req.User, "user", "u", "", "User id (required)")
	cmd.Flags().StringVar(&props, "props", "", "Event properties as a JSON object")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newEventResolveCmd(opts *globalOptions, verb, short string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   verb + " <event-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				resolve := d.Events.HandleAuthorise
				if verb == "reject" {
					resolve = d.Events.HandleReject
				}
				result, err := resolve(cmd.Context(), args[0], user)
				if err != nil {
					return err
				}
				return printEventResult(cmd.OutOrStdout(), opts, "Event", result)
			})
		},
	}
	if verb == "authorise" {
		cmd.Aliases = []string{"authorize"}
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Resolving user id (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newEventStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <event-id>",
		Short: "Show an event's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Events.HandleStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printEventResult(cmd.OutOrStdout(), opts, "Event", result)
			})
		},
	}
}

func newEventSubjectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "subject <event-id>",
		Short: "Show the subject an event belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				subject, err := d.Events.HandleSubject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), subject)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", subjectLabel(subject), subjectKey(subject), subject.ID)
				return err
			})
		},
	}
}

func newEventChainCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <subject-type> <subject>",
		Short: "List a subject's events in chain order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				chain, err := d.Events.HandleChain(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), chain)
				}
				return formatEvents(cmd.OutOrStdout(), chain)
			})
		},
	}
}

func printEventResult(w io.Writer, opts *globalOptions, verb string, r *handlers.EventResult) error {
	if opts.output == outputJSON {
		return writeJSON(w, r)
	}
	_, err := fmt.Fprintf(w, "%s %s: %s\n", verb, r.ID, r.Status)
	return err
}

func subjectLabel(n *entities.Node) string {
	for _, l := range n.Labels {
		if _, ok := entities.IdentityProps[l]; ok {
			return l
		}
	}
	if len(n.Labels) > 0 {
		return n.Labels[0]
	}
	return "Node"
}

func subjectKey(n *entities.Node) string {
	if prop, ok := entities.IdentityProps[subjectLabel(n)]; ok {
		return n.String(prop)
	}
	return n.ID
}
