// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/infrastructure/config"
)

// GraphOpener connects to the graph store described by cfg.
type GraphOpener func(ctx context.Context, cfg *config.Config, basePath string) (ports.GraphDB, error)

// InitHandler handles store initialization.
type InitHandler struct {
	open GraphOpener
}

// NewInitHandler creates a new init handler.
func NewInitHandler(open GraphOpener) *InitHandler {
	return &InitHandler{open: open}
}

// InitOptions overrides the default config written by init.
type InitOptions struct {
	Backend  string // "sqlite" or "neo4j"; empty keeps the default
	Neo4jURI string
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath string
	Backend    string
}

// Handle writes the default config and creates the store schema.
func (h *InitHandler) Handle(ctx context.Context, basePath string, opts InitOptions) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("vardb already initialized in %s", basePath)
	}
	switch opts.Backend {
	case "", config.BackendSQLite, config.BackendNeo4j:
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", entities.ErrInvalidInput, opts.Backend)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.Backend != "" || opts.Neo4jURI != "" {
		if cfg, err = writeOverrides(basePath, cfg, opts); err != nil {
			return nil, err
		}
	}

	if h.open != nil {
		graph, err := h.open(ctx, cfg, basePath)
		if err != nil {
			return nil, fmt.Errorf("opening graph: %w", err)
		}
		defer graph.Close()

		if err := graph.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &InitResult{
		ConfigPath: config.ConfigFilePath(basePath),
		Backend:    cfg.Graph.Backend,
	}, nil
}

// writeOverrides persists the init options. Secrets picked up from the
// environment are never written back to the file.
func writeOverrides(basePath string, cfg *config.Config, opts InitOptions) (*config.Config, error) {
	updated := *cfg
	if opts.Backend != "" {
		updated.Graph.Backend = opts.Backend
	}
	if opts.Neo4jURI != "" {
		updated.Neo4j.URI = opts.Neo4jURI
	}
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidInput, err)
	}

	onDisk := updated
	onDisk.Neo4j.Password = ""
	if err := config.Write(basePath, &onDisk); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return &updated, nil
}
