package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fieldlens/fieldlens/internal/cli/config"
	"github.com/fieldlens/fieldlens/internal/plan"
	"github.com/fieldlens/fieldlens/internal/plancache"
	"github.com/fieldlens/fieldlens/internal/retrieve"
	"github.com/fieldlens/fieldlens/internal/schema"
	"github.com/fieldlens/fieldlens/internal/web/handlers"
	"github.com/fieldlens/fieldlens/internal/web/middleware"
	"github.com/fieldlens/fieldlens/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var configDir string
	var devMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read API server",
		Long: `Start the HTTP server. Resources are read from fieldlens.yaml, full
load plans are computed up front, and one route pair is served per
resource: GET /{resource} and GET /{resource}/{id}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configDir, devMode)
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", "", "directory containing fieldlens.yaml")
	cmd.Flags().BoolVar(&devMode, "dev", false, "development mode (human-readable logging)")
	return cmd
}

func runServe(configDir string, devMode bool) error {
	logger, err := newLogger(devMode)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return fmt.Errorf("invalid resource schema: %w", err)
	}
	if registry.Count() == 0 {
		return fmt.Errorf("no resources declared in fieldlens.yaml")
	}

	dbURL := cfg.DatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("database URL is required (set database.url or DATABASE_URL)")
	}
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	cache, err := buildCache(cfg.Cache)
	if err != nil {
		return err
	}

	intro := schema.NewIntrospector(registry)
	planner := plan.NewPlanner(intro, logger)
	if err := planner.Warm(); err != nil {
		return fmt.Errorf("failed to precompute load plans: %w", err)
	}
	logger.Info("load plans ready", zap.Int("resources", registry.Count()))

	narrower := plan.NewNarrower(planner, cache, logger)
	loader := retrieve.NewLoader(db, registry)

	router := chi.NewRouter()
	handlers.NewResources(registry, narrower, loader, logger).Mount(router)

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)

	serverConfig := server.DefaultConfig(chain.Then(router))
	serverConfig.Address = cfg.Server.Addr()
	serverConfig.Database = server.DefaultDatabaseConfig(db)

	srv, err := server.New(serverConfig)
	if err != nil {
		return err
	}

	shutdownConfig := server.DefaultShutdownConfig()
	shutdownConfig.Logger = logger

	gs := server.NewGracefulShutdown(srv, shutdownConfig)
	gs.RegisterHook(func(ctx context.Context) error {
		return db.Close()
	})

	return gs.Start()
}

func newLogger(devMode bool) (*zap.Logger, error) {
	if devMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildCache selects the narrowed-plan cache backend: Redis when an address
// is configured, otherwise the in-process LRU.
func buildCache(cfg config.CacheConfig) (plancache.Cache, error) {
	base := plancache.Config{
		Capacity:   cfg.Capacity,
		DefaultTTL: cfg.TTL,
	}

	if cfg.Redis.Addr == "" {
		return plancache.NewMemoryWithConfig(base), nil
	}

	cache, err := plancache.NewRedis(plancache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Config:   base,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return cache, nil
}
