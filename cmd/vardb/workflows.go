package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/variantdb-core/internal/application/handlers"
)

func newWorkflowsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List and run named workflows",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The registry is static; listing needs no store.
			workflows := handlers.NewWorkflows(handlers.WorkflowHandlers{}).List()
			if opts.output == outputJSON {
				type entry struct {
					Name        string   `json:"name"`
					Description string   `json:"description"`
					Required    []string `json:"required"`
					Optional    []string `json:"optional,omitempty"`
				}
				out := make([]entry, 0, len(workflows))
				for _, wf := range workflows {
					out = append(out, entry{wf.Name, wf.Description, wf.Required, wf.Optional})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tPARAMS\tDESCRIPTION")
			for _, wf := range workflows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", wf.Name, formatParams(wf), wf.Description)
			}
			return tw.Flush()
		},
	}

	var params []string
	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a workflow with key=value parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), opts, func(d *Deps) error {
				result, err := d.Workflows.Run(cmd.Context(), args[0], p)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	run.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter as key=value (repeatable)")

	cmd.AddCommand(list, run)
	return cmd
}

func parseParams(raw []string) (handlers.Params, error) {
	p := make(handlers.Params, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", kv)
		}
		p[strings.TrimSpace(key)] = value
	}
	return p, nil
}

func formatParams(wf handlers.Workflow) string {
	parts := append([]string{}, wf.Required...)
	for _, o := range wf.Optional {
		parts = append(parts, "["+o+"]")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
