package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/internal/infra/config"
	"github.com/yanqian/review-digest/internal/infra/llm/chatgpt"
	"github.com/yanqian/review-digest/internal/infra/reviewstore"
	"github.com/yanqian/review-digest/internal/infra/summarybackend"
	"github.com/yanqian/review-digest/internal/infra/summarycache"
	"github.com/yanqian/review-digest/pkg/util"
)

func provideClock() util.Clock {
	return util.NowUTC
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideReviewConfig(cfg *config.Config) review.Config {
	return review.Config{
		Prompt:      cfg.Summary.Prompt,
		ReviewLimit: cfg.Summary.ReviewLimit,
		Coalesce:    cfg.Summary.Coalesce,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
}

func provideSummarizerConfig(cfg *config.Config) summarybackend.Config {
	return summarybackend.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
}

// provideReviewStore builds the configured store, optionally fronted by the
// Valkey summary cache. The returned cleanup releases pools and clients.
func provideReviewStore(cfg *config.Config, now util.Clock, logger *slog.Logger) (review.Store, func(), error) {
	var (
		store   review.Store
		cleanup = func() {}
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		mem := reviewstore.NewMemoryStore(cfg.Summary.TTL, now)
		reviewstore.SeedDemo(mem)
		logger.Info("using in-memory review store with demo data")
		store = mem
	default:
		pool, err := openPostgres(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		store = reviewstore.NewPostgresStore(pool, cfg.Summary.TTL, now)
		cleanup = pool.Close
	}

	if !cfg.Cache.Enabled {
		return store, cleanup, nil
	}
	client, err := openValkey(cfg, logger)
	if err != nil {
		logger.Error("summary cache unavailable, continuing without it", "addr", cfg.Cache.Addr, "error", err)
		return store, cleanup, nil
	}
	logger.Info("summary cache enabled", "addr", cfg.Cache.Addr, "prefix", cfg.Cache.Prefix)
	closeStore := cleanup
	return summarycache.NewStore(store, client, cfg.Cache.Prefix, now, logger), func() {
		client.Close()
		closeStore()
	}, nil
}

func openPostgres(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.Database.DSN))
	if err != nil {
		return nil, fmt.Errorf("parse database.dsn: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolConfig.MinConns = cfg.Database.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if cfg.Database.Migrate {
		migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelMigrate()
		if err := reviewstore.Migrate(migrateCtx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}
	logger.Info("postgres review store enabled", "max_conns", poolConfig.MaxConns)
	return pool, nil
}

func openValkey(cfg *config.Config, logger *slog.Logger) (valkey.Client, error) {
	opt, err := buildValkeyOptions(cfg.Cache.Addr)
	if err != nil {
		return nil, err
	}
	// Summaries are read with plain GET; server-assisted client caching is unused.
	opt.DisableCache = true
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}
	logger.Debug("valkey ping ok", "addr", cfg.Cache.Addr)
	return client, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
