package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ersonp/variantdb-core/internal/application/handlers"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
	"github.com/ersonp/variantdb-core/internal/domain/services"
	"github.com/ersonp/variantdb-core/internal/infrastructure/config"
	neo4jgraph "github.com/ersonp/variantdb-core/internal/infrastructure/graphdb/neo4j"
	"github.com/ersonp/variantdb-core/internal/infrastructure/graphdb/sqlite"
	"github.com/ersonp/variantdb-core/internal/infrastructure/logger"
	"github.com/ersonp/variantdb-core/internal/infrastructure/metrics"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed; services and the graph store are internal.
type Deps struct {
	Config         *config.Config
	Actions        *handlers.ActionHandler
	Events         *handlers.EventHandler
	Classification *handlers.ClassificationHandler
	Stratify       *handlers.StratifyHandler
	Pending        *handlers.PendingHandler
	Users          *handlers.UserHandler
	Import         *handlers.ImportHandler
	Workflows      *handlers.Workflows
}

// basePath resolves the project directory.
func basePath(opts *globalOptions) (string, error) {
	if opts.dir != "" {
		return filepath.Abs(opts.dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It closes the store and flushes logs and metrics afterwards.
func withDeps(ctx context.Context, opts *globalOptions, fn func(*Deps) error) (err error) {
	base, err := basePath(opts)
	if err != nil {
		return err
	}

	cfg, err := config.Load(base)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	recorder := metrics.New()
	defer func() {
		if werr := recorder.WriteTextfile(metricsPath(base, cfg.Metrics.Textfile)); werr != nil {
			log.Warn("metrics textfile not written", "error", werr.Error())
		}
	}()

	graph, err := openGraph(ctx, cfg, base, log)
	if err != nil {
		return err
	}
	defer graph.Close()

	if err := graph.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	return fn(buildDeps(cfg, graph, log, recorder))
}

func buildDeps(cfg *config.Config, graph ports.GraphDB, log *logger.Logger, recorder *metrics.Recorder) *Deps {
	runner := handlers.NewRunner(
		handlers.RetryPolicy{MaxAttempts: cfg.Retry.MaxAttempts, Backoff: cfg.Retry.Backoff()},
		handlers.Observers(handlers.NewLogObserver(log), handlers.NewMetricsObserver(recorder)),
	)
	dual := services.DualControl{AllowSelfAuthorisation: cfg.Workflow.AllowSelfAuthorisation}
	stratify := services.StratifyOptions{
		ScopeToPanel:  cfg.Stratify.ScopeToPanel,
		ExACThreshold: cfg.Stratify.ExACThreshold,
		KGThreshold:   cfg.Stratify.KGThreshold,
	}

	lookup := services.NewLookupService(graph)

	d := &Deps{
		Config: cfg,
		Actions: handlers.NewActionHandler(runner, lookup,
			services.NewAuditService(graph, dual), services.NewActionService(graph)),
		Events:         handlers.NewEventHandler(runner, lookup, services.NewEventService(graph, dual)),
		Classification: handlers.NewClassificationHandler(runner, lookup, services.NewClassificationService(graph)),
		Stratify:       handlers.NewStratifyHandler(runner, services.NewStratificationService(graph, stratify)),
		Pending:        handlers.NewPendingHandler(runner, services.NewPendingService(graph)),
		Users:          handlers.NewUserHandler(runner, lookup),
		Import:         handlers.NewImportHandler(runner, services.NewImportService(graph)),
	}
	d.Workflows = handlers.NewWorkflows(handlers.WorkflowHandlers{
		Actions:        d.Actions,
		Events:         d.Events,
		Classification: d.Classification,
		Stratify:       d.Stratify,
		Pending:        d.Pending,
	})
	return d
}

// openGraph connects to the configured backend.
func openGraph(ctx context.Context, cfg *config.Config, base string, log *logger.Logger) (ports.GraphDB, error) {
	switch cfg.Graph.Backend {
	case config.BackendNeo4j:
		repo, err := neo4jgraph.NewRepository(ctx, cfg.Neo4j, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to neo4j: %w", err)
		}
		return repo, nil
	default:
		repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: cfg.SQLitePath(base)})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite graph: %w", err)
		}
		return repo, nil
	}
}

func metricsPath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
