package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/daimoniac/erratadb/internal/cache"
	"github.com/daimoniac/erratadb/internal/config"
	"github.com/daimoniac/erratadb/internal/loader"
	"github.com/daimoniac/erratadb/internal/observability"
	"github.com/daimoniac/erratadb/internal/pipeline"
	"github.com/daimoniac/erratadb/internal/policy"
	"github.com/daimoniac/erratadb/internal/snapshot"
	"github.com/daimoniac/erratadb/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel)
	logger.Info("starting erratadb",
		"repos_path", cfg.ReposPath,
		"cache_root", cfg.Ingest.CacheRoot,
		"sqlite_path", cfg.Store.SQLitePath,
		"log_level", cfg.Observability.LogLevel)

	repos, err := config.LoadRepos(cfg.ReposPath)
	if err != nil {
		return fmt.Errorf("failed to load repos file: %w", err)
	}
	logger.Debug("repositories loaded",
		"count", len(repos.Repos))

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	if cfg.Observability.MetricsEnabled {
		obsServer := observability.NewServer(cfg.Observability.MetricsPort, registry, logger)
		go func() {
			if err := obsServer.Start(ctx); err != nil {
				logger.Error("metrics server error",
					"error", err.Error())
			}
		}()
	}

	if cfg.Ingest.Makecache {
		repoIDs := make([]string, 0, len(repos.Repos))
		for _, repo := range repos.Repos {
			repoIDs = append(repoIDs, repo.ID)
		}

		refreshCtx, cancelRefresh := context.WithTimeout(ctx, cfg.Ingest.MakecacheTimeout)
		err := cache.NewRefresher(logger).Refresh(refreshCtx, cfg.Ingest.CacheRoot, repoIDs)
		cancelRefresh()
		if err != nil {
			return fmt.Errorf("failed to refresh package cache: %w", err)
		}
	}

	engine, err := policy.NewEngine(logger, policy.Config{
		Expression: cfg.Ingest.PolicyExpression,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize admission policy: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite store: %w", err)
	}
	defer st.Close()

	p := pipeline.New(
		loader.NewLoader(cfg.Ingest.CacheRoot, logger),
		engine,
		snapshot.NewWriter(cfg.Ingest.OutDir),
		st,
		metrics,
		logger,
		cfg.Ingest.SkipCorrupt,
	)

	summary, err := p.Run(ctx, repos.Repos)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	logger.Info("erratadb finished",
		"repos", summary.ReposProcessed,
		"unavailable", summary.ReposUnavailable,
		"normalized", summary.Normalized,
		"corrupt", summary.Corrupt,
		"rejected", summary.Rejected,
		"merged", summary.Merged,
		"persisted", summary.Persisted)

	return nil
}
