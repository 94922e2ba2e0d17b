package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/config"
	handler "github.com/godilite/pulse-server/internal/grpc"
	"github.com/godilite/pulse-server/internal/httpapi"
	"github.com/godilite/pulse-server/internal/repository"
	"github.com/godilite/pulse-server/internal/service"
	"github.com/godilite/pulse-server/pkg/cache"
	dbbuilder "github.com/godilite/pulse-server/pkg/database"
	grpcsrv "github.com/godilite/pulse-server/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      cache.Cacher
	grpcServer *grpcsrv.Server
	httpServer *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbOpts := []dbbuilder.Option{
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	}
	if cfg.DBAutoMigrate {
		dbOpts = append(dbOpts, dbbuilder.WithBootstrap(repository.Schema(cfg.DBDriver)))
	}
	dbPool, err := dbbuilder.New(dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized",
		zap.String("driver", cfg.DBDriver),
		zap.Bool("auto_migrate", cfg.DBAutoMigrate))

	cacheClient, err := newCache(ctx, cfg, logger)
	if err != nil {
		_ = dbPool.Close()
		return nil, err
	}

	loc := cfg.Location()
	keyFunc := aggregation.ByTimestamp
	if cfg.SubmissionKey == config.SubmissionKeySession {
		keyFunc = aggregation.BySession
	}
	aggregator := aggregation.New(
		aggregation.WithLocation(loc),
		aggregation.WithSubmissionKey(keyFunc),
		aggregation.WithLogger(logger.Named("aggregation")),
	)

	surveyRepo := repository.NewSurveyRepository(dbPool, cfg.DBDriver)

	resultsService := service.NewResultsService(surveyRepo, logger,
		service.WithAggregator(aggregator),
		service.WithTextLimit(cfg.TextResponseLimit),
	)

	grpcHandlers := handler.NewGRPCHandlers(resultsService, cacheClient, logger, cfg.CacheTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
	)
	if err != nil {
		_ = cacheClient.Close()
		_ = dbPool.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterPulseResultsServer(s, grpcHandlers)
	})

	httpHandler := httpapi.NewHandler(resultsService, logger,
		httpapi.WithCache(cache.NewReadThrough(cacheClient,
			cache.WithTTL(cfg.CacheTTL),
			cache.WithLogger(logger.Named("http-cache")))),
		httpapi.WithLocation(loc),
		httpapi.WithReadiness(dbPool.PingContext),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpapi.NewRouter(httpHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		logger:     logger,
		dbPool:     dbPool,
		cache:      cacheClient,
		grpcServer: grpcServer,
		httpServer: httpServer,
	}, nil
}

// newCache connects to Redis, or returns a no-op cache when REDIS_ADDR is empty.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cacher, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, results are not cached")
		return cache.Nop{}, nil
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
		cache.WithDB(cfg.RedisDB),
		cache.WithKeyPrefix("pulse:"),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	return cacheClient, nil
}

// Run starts the application and blocks until a shutdown signal is received
// or the HTTP server fails.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.grpcServer.Start()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.Info("application shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		a.logger.Error("HTTP server failed", zap.Error(err))
		runErr = fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.shutdown(ctx)

	_ = a.logger.Sync()
	return runErr
}

func (a *App) shutdown(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Error("gRPC server shutdown error", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		a.logger.Warn("shutdown completed but deadline exceeded")
		return
	}
	a.logger.Info("graceful shutdown completed successfully")
}
