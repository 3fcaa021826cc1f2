package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/frotaviva/trip-compliance/internal/cache/rediscache"
	"github.com/frotaviva/trip-compliance/internal/core/config"
	"github.com/frotaviva/trip-compliance/internal/core/httpclient"
	"github.com/frotaviva/trip-compliance/internal/core/observability"
	"github.com/frotaviva/trip-compliance/internal/core/server"
	"github.com/frotaviva/trip-compliance/internal/invalidation"
	"github.com/frotaviva/trip-compliance/internal/logger"
	"github.com/frotaviva/trip-compliance/internal/pipeline"
	"github.com/frotaviva/trip-compliance/internal/rules"
	"github.com/frotaviva/trip-compliance/internal/service"
	"github.com/frotaviva/trip-compliance/internal/snapshot"
	"github.com/frotaviva/trip-compliance/internal/upstream"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "trip-compliance",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting trip-compliance",
		"addr", cfg.Addr,
		"version", Version,
		"scheduler_api", cfg.SchedulerAPIURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisCli, err := rediscache.New(ctx, cfg.RedisAddr)
	if err != nil {
		appLog.Error("redis client", "err", err)
		return 1
	}
	defer func() { _ = redisCli.Close() }()
	store := rediscache.NewStore(redisCli, cfg.CacheOpTimeout)

	fetcher, err := upstream.NewClient(
		cfg.SchedulerAPIURL,
		httpclient.NewOutbound(cfg.FetchTimeout),
		upstream.RetryPolicy{
			MaxAttempts: cfg.FetchMaxAttempts,
			BaseDelay:   cfg.FetchRetryBase,
			MaxDelay:    cfg.FetchRetryMax,
		},
		appLog,
	)
	if err != nil {
		appLog.Error("upstream client", "err", err)
		return 1
	}

	proc := pipeline.New(
		rules.New(cfg.DelayTolerance, cfg.MissedScheduleGrace),
		cfg.BatchSize,
		appLog,
	)
	svc := service.New(fetcher, proc, snapshot.NewStore(), store, cfg.CacheTTL, appLog)

	if cfg.Invalidation.Enabled {
		consumer := invalidation.NewConsumer(cfg.Invalidation, appLog, store)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("invalidation consumer exited", "err", err)
			}
		}()
	}

	if err := server.Run(ctx, cfg, appLog, svc, redisCli); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
