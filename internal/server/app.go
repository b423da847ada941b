// Package server wires storage, services and both transports into the
// herdsync remote authority and runs them until shutdown.
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/dmitrijs2005/herdsync/internal/logging"
	"github.com/dmitrijs2005/herdsync/internal/server/auth"
	"github.com/dmitrijs2005/herdsync/internal/server/config"
	"github.com/dmitrijs2005/herdsync/internal/server/httpapi"
	"github.com/dmitrijs2005/herdsync/internal/server/metrics"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/herdsync/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/herdsync/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	repo       repomanager.RepositoryManager
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

// newRepositoryManager is replaced in tests.
var newRepositoryManager = func(ctx context.Context, cfg *config.Config) (repomanager.RepositoryManager, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return repomanager.NewMemoryRepositoryManager(), nil
	case config.StoragePostgres:
		return repomanager.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	repo, err := newRepositoryManager(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	m := metrics.New()
	secret := []byte(cfg.SecretKey)
	users := services.NewUserService(repo, secret, cfg.TokenValidity, m)
	sync := services.NewSyncService(repo, m)
	verifier := auth.NewVerifier(secret, cfg.TokenCacheSize, cfg.TokenCacheTTL)

	httpServer := httpapi.NewServer(cfg.HTTPAddr, httpapi.Deps{
		Users:    users,
		Sync:     sync,
		Verifier: verifier,
		Health:   repo,
		Metrics:  m,
		Logger:   logger.With("module", "http_server"),
	})
	grpcServer := gs.NewGRPCServer(cfg.GRPCAddr, logger, users, sync, verifier, repo, m)

	return &App{
		config:     cfg,
		logger:     logger,
		repo:       repo,
		httpServer: httpServer,
		grpcServer: grpcServer,
	}, nil
}

// Run serves HTTP and gRPC until ctx is cancelled or either server fails,
// then stops both and closes storage.
func (app *App) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		app.closeRepo(ctx)
		return err
	}
	grpcLn, err := net.Listen("tcp", app.config.GRPCAddr)
	if err != nil {
		httpLn.Close()
		app.closeRepo(ctx)
		return err
	}
	return app.serve(ctx, httpLn, grpcLn)
}

func (app *App) serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)
	defer app.closeRepo(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.httpServer.Serve(gctx, httpLn)
	})
	g.Go(func() error {
		return app.grpcServer.Serve(gctx, grpcLn)
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) closeRepo(ctx context.Context) {
	if err := app.repo.Close(); err != nil {
		app.logger.Error(ctx, "closing storage", "error", err)
	}
}
