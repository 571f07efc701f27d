package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/variantdb-core/internal/domain/services"
	"github.com/ersonp/variantdb-core/internal/infrastructure/parsers"
)

// ImportHandler handles importing graph fixtures from files.
type ImportHandler struct {
	runner  *Runner
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(runner *Runner, service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		runner:  runner,
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string                    // "json", "yaml", or "auto"
	DryRun     bool                      // Validate without saving
	OnConflict services.ConflictStrategy // How to handle existing nodes
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Nodes         int
	Relationships int
	Skipped       int
	Errors        []services.ImportError
}

// Handle imports a fixture from a file.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}
	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	fixture, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	if len(fixture.Nodes) == 0 && len(fixture.Relationships) == 0 {
		return &ImportResult{}, nil
	}

	serviceOpts := services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: opts.OnConflict,
	}

	var serviceResult *services.ImportResult
	fields := map[string]any{"file": filePath, "dry_run": opts.DryRun}
	err = h.runner.Run(ctx, "import", fields, func(ctx context.Context) error {
		var err error
		serviceResult, err = h.service.Import(ctx, fixture, serviceOpts)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Nodes:         serviceResult.Nodes,
		Relationships: serviceResult.Relationships,
		Skipped:       serviceResult.Skipped,
		Errors:        serviceResult.Errors,
	}, nil
}
