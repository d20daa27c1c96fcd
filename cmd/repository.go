package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/contentgraph/internal/config"
	"github.com/zjrosen/contentgraph/internal/contentrepository"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/infrastructure/sqlite"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/metrics"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/tracing"
)

// environment is an opened content repository plus everything that must be
// released with it.
type environment struct {
	repo    *contentrepository.ContentRepository
	metrics *metrics.Metrics
	closers []func()
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

func loadDimensions(c config.DimensionsConfig) (*dimensionspace.VariationGraph, error) {
	dimCfg, err := dimensionspace.LoadConfig(os.DirFS(filepath.Dir(c.File)), filepath.Base(c.File))
	if err != nil {
		return nil, fmt.Errorf("loading dimensions from %s: %w", c.File, err)
	}
	g, err := dimCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building variation graph from %s: %w", c.File, err)
	}
	return g, nil
}

// loadNodeTypes returns a manager over the node type directory after
// checking that the registry builds.
func loadNodeTypes(c config.NodeTypesConfig) (*nodetype.Manager, error) {
	manager := nodetype.NewManager(nodetype.DirProvider(c.Dir, c.Pattern))
	if _, err := manager.Registry(); err != nil {
		return nil, fmt.Errorf("loading node types from %s: %w", c.Dir, err)
	}
	return manager, nil
}

// openEnvironment builds and starts a content repository from cfg.
func openEnvironment(ctx context.Context, cfg config.Config) (*environment, error) {
	dims, err := loadDimensions(cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	nodeTypes, err := loadNodeTypes(cfg.NodeTypes)
	if err != nil {
		return nil, err
	}

	env := &environment{}
	repoCfg := contentrepository.Config{
		Dimensions:           dims,
		NodeTypes:            nodeTypes,
		CacheTTL:             cfg.Cache.TTL,
		CacheCleanupInterval: cfg.Cache.CleanupInterval,
		QueueCapacity:        cfg.Processor.QueueCapacity,
		DeduplicationTTL:     cfg.Processor.DeduplicationTTL,
		SlowCommandThreshold: cfg.Processor.SlowCommandThreshold,
	}

	if cfg.EventStore.Driver == config.DriverSQLite {
		db, err := sqlite.NewDB(cfg.EventStore.Path)
		if err != nil {
			return nil, fmt.Errorf("opening event store: %w", err)
		}
		env.closers = append(env.closers, func() {
			if err := db.Close(); err != nil {
				log.ErrorErr(log.CatDB, "closing event store", err)
			}
		})
		repoCfg.Store = db.EventStore()
		repoCfg.Workspaces = db.WorkspaceRepository()
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("creating tracing provider: %w", err)
	}
	if provider.Enabled() {
		repoCfg.Tracer = provider.Tracer()
		env.closers = append(env.closers, func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				log.ErrorErr(log.CatConfig, "shutting down tracing", err)
			}
		})
	}

	if cfg.Metrics.Enabled {
		env.metrics = metrics.New(cfg.Metrics.Namespace)
		repoCfg.Metrics = env.metrics
	}

	repo, err := contentrepository.New(repoCfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	if err := repo.Start(ctx); err != nil {
		env.Close()
		return nil, err
	}
	env.repo = repo
	env.closers = append(env.closers, repo.Shutdown)
	return env, nil
}
