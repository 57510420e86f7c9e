package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/scriptotek/rt-triage/internal/alma"
	"github.com/scriptotek/rt-triage/internal/config"
	"github.com/scriptotek/rt-triage/internal/observability"
	"github.com/scriptotek/rt-triage/internal/persistence"
	"github.com/scriptotek/rt-triage/internal/processors"
	"github.com/scriptotek/rt-triage/internal/repository"
	"github.com/scriptotek/rt-triage/internal/routing"
	"github.com/scriptotek/rt-triage/internal/rt"
	"github.com/scriptotek/rt-triage/internal/worker"
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

	ctx := context.Background()

	tables, err := routing.LoadTables(cfg.Routing.TablesPath)
	if err != nil {
		logger.Fatal("failed to load routing tables", zap.Error(err))
	}

	tracker, err := rt.NewTracker(ctx, cfg.RT, logger)
	if err != nil {
		logger.Fatal("RT login failed", zap.Error(err))
	}

	almaClient, err := alma.NewClient(cfg.Alma, logger)
	if err != nil {
		logger.Fatal("failed to init alma client", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var items alma.ItemSource = almaClient
	if redis != nil {
		items = alma.NewCachedItems(almaClient, redis.Client, cfg.Alma.ItemCacheTTL(), logger)
	}
	catalog := alma.NewService(almaClient, items)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var stats repository.StatsRepository
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		stats = repository.NewStatsRepository(pool)
	}

	procs := []processors.Processor{
		processors.NewMergeDuplicates(tracker, logger),
		processors.NewAutoReply(tracker, logger),
		processors.NewCccReceipts(tracker, logger),
		processors.NewTakeAway(processors.TakeAwayDependencies{
			Tracker: tracker,
			Catalog: catalog,
			Tables:  tables,
			Stats:   stats,
			Logger:  logger,
		}),
		processors.NewAutoSort(processors.AutoSortDependencies{
			Tracker: tracker,
			Catalog: catalog,
			Tables:  tables,
			Logger:  logger,
			Bcc:     cfg.Sweep.CommentBcc,
		}),
	}

	metrics := observability.NewSweepMetrics()
	sweeper := worker.NewSweeper(procs, cfg.Sweep, logger, metrics)
	if err := sweeper.Run(ctx); err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}
}
