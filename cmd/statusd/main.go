package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/scriptotek/rt-triage/internal/api/http"
	"github.com/scriptotek/rt-triage/internal/api/http/handlers"
	"github.com/scriptotek/rt-triage/internal/config"
	"github.com/scriptotek/rt-triage/internal/observability"
	"github.com/scriptotek/rt-triage/internal/persistence"
	"github.com/scriptotek/rt-triage/internal/repository"
	"github.com/scriptotek/rt-triage/internal/rt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker, err := rt.NewTracker(ctx, cfg.RT, logger)
	if err != nil {
		logger.Fatal("RT login failed", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var stats repository.StatsRepository
	if pool := pg.PoolHandle(); pool != nil {
		stats = repository.NewStatsRepository(pool)
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	statusHandler := handlers.NewStatusHandler(tracker, stats, cfg.App.StatusQueues, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: healthHandler,
		Status: statusHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
