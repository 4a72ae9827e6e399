package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/cache"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/db"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/extract"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/keywords"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/models"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/pipeline"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/search"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/task"

	"github.com/google/uuid"
)

// Runs one discovery task from the command line, bypassing the API.
func main() {
	terms := flag.String("terms", "tender", "comma-separated search terms")
	engines := flag.String("engines", "google,bing,duckduckgo", "comma-separated engine ids")
	window := flag.String("window", "", "time window: d, w, m or y")
	flag.Parse()

	logger.Init()
	cfg := config.Load()
	ctx := context.Background()

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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer redisClient.Close()

	publisher := task.NewPublisher(ctx, task.NewRedisProgressSink(redisClient, cfg.ProgressStream))
	defer publisher.Close()

	pipe := pipeline.New(
		search.NewQueryBuilder(registry),
		search.NewHarvester(registry, search.NewChromeBrowser(cfg.BrowserHeadless, cfg.BrowserTimeout), cache.NewMemcacheService(cfg.MemcacheAddr), cfg.FetchTimeout),
		search.NewResolver(registry),
		extract.NewFetcher(cfg.FetchTimeout),
		db.NewStore(pool),
		keywords.NewStore(pool),
	)

	ctrl := task.NewController(
		uuid.NewString(),
		splitList(*terms),
		splitList(*engines),
		task.NewRedisStateStore(redisClient, cfg.TaskStateTTL),
		publisher,
	)

	pipe.Run(ctx, ctrl, pipeline.Params{
		Terms:   splitList(*terms),
		Engines: splitList(*engines),
		Filters: search.QueryFilters{TimeWindow: *window},
	})

	snap := ctrl.Snapshot()
	logger.Info("Task %s finished with status %s (%d visited, %d found)",
		snap.TaskID, snap.Status, snap.TotalURLs, snap.Summary.TotalCount)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Status", "Closing", "Type", "Title", "Source"})
	for _, tender := range snap.Results {
		closing := "-"
		if !tender.ClosingDate.IsZero() {
			closing = tender.ClosingDate.Format("2006-01-02")
		}
		t.AppendRow(table.Row{tender.Status, closing, tender.TenderType, truncate(tender.Title, 50), tender.SourceURL})
	}
	t.Render()

	if snap.Status != models.TaskComplete {
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
