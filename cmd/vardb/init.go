package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/variantdb-core/internal/application/handlers"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/infrastructure/config"
	"github.com/ersonp/variantdb-core/internal/infrastructure/logger"
)

func newInitCmd(opts *globalOptions) *cobra.Command {
	var initOpts handlers.InitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new vardb project",
		Long:  "Creates a .vardb directory with default configuration and sets up the graph schema.",
		Example: `  vardb init
  vardb init --backend neo4j --neo4j-uri neo4j://graph.internal:7687`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, initOpts)
		},
	}

	cmd.Flags().StringVar(&initOpts.Backend, "backend", "", "Graph backend: sqlite or neo4j (default sqlite)")
	cmd.Flags().StringVar(&initOpts.Neo4jURI, "neo4j-uri", "", "Neo4j connection URI")

	return cmd
}

func runInit(cmd *cobra.Command, opts *globalOptions, initOpts handlers.InitOptions) error {
	base, err := basePath(opts)
	if err != nil {
		return err
	}

	open := func(ctx context.Context, cfg *config.Config, base string) (ports.GraphDB, error) {
		return openGraph(ctx, cfg, base, logger.NewNop())
	}

	result, err := handlers.NewInitHandler(open).Handle(cmd.Context(), base, initOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", result.ConfigPath)
	fmt.Fprintf(out, "Graph backend: %s\n", result.Backend)
	fmt.Fprintln(out, "vardb initialized successfully!")
	return nil
}
