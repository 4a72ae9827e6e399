package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/api"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/auth"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/cache"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/db"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/extract"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/keywords"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/pipeline"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/search"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/task"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		logger.Fatal("Migration failed: %v", err)
	}

	registry, err := config.LoadRegistry(config.RegistryPathFromEnv())
	if err != nil {
		logger.Fatal("Engine registry load failed: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	states := task.NewRedisStateStore(redisClient, cfg.TaskStateTTL)
	publisher := task.NewPublisher(ctx, task.NewRedisProgressSink(redisClient, cfg.ProgressStream))
	defer publisher.Close()

	blockCache := cache.NewMemcacheService(cfg.MemcacheAddr)
	browser := search.NewChromeBrowser(cfg.BrowserHeadless, cfg.BrowserTimeout)

	pipe := pipeline.New(
		search.NewQueryBuilder(registry),
		search.NewHarvester(registry, browser, blockCache, cfg.FetchTimeout),
		search.NewResolver(registry),
		extract.NewFetcher(cfg.FetchTimeout),
		db.NewStore(pool),
		keywords.NewStore(pool),
	)

	srv := api.NewServer(api.Deps{
		Store:       db.NewStore(pool),
		AuthService: auth.NewService(pool),
		Registry:    registry,
		Pipeline:    pipe,
		States:      states,
		Publisher:   publisher,
	})

	logger.Info("Server starting on port %s...", cfg.Port)
	if err := srv.Start(ctx, cfg.Port); err != nil {
		logger.Fatal("Server stopped: %v", err)
	}
}
