package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
	"github.com/smallsteps/growthscreen/internal/domain/screening"
	"github.com/smallsteps/growthscreen/internal/infra/config"
	"github.com/smallsteps/growthscreen/internal/infra/inference"
	"github.com/smallsteps/growthscreen/internal/infra/offlinequeue"
	"github.com/smallsteps/growthscreen/internal/infra/resultcache"
	"github.com/smallsteps/growthscreen/internal/infra/scanarchive"
)

func provideScreeningConfig(cfg *config.Config) screening.Config {
	return screening.Config{
		CacheTTL:            cfg.Screening.CacheTTL,
		MaxRemoteAttempts:   cfg.Inference.MaxAttempts,
		BaseBackoff:         cfg.Inference.BaseBackoff,
		FallbackEnabled:     cfg.Screening.FallbackEnabled,
		ConfidenceThreshold: cfg.Screening.ConfidenceThreshold,
	}
}

func provideStandards() *growth.Standards {
	return growth.NewStandards()
}

func provideClassifier(standards *growth.Standards) *growth.Classifier {
	return growth.NewClassifier(standards)
}

func provideEstimator(cfg *config.Config, standards *growth.Standards) *screening.Estimator {
	return screening.NewEstimator(standards, cfg.Screening.EstimatorSeed, cfg.Screening.EstimatorJitter)
}

func provideInferenceClient(cfg *config.Config) *inference.Client {
	return inference.NewClient(cfg.Inference.BaseURL, cfg.Inference.RequestTimeout)
}

func provideHealthProbe(cfg *config.Config) *inference.HealthProbe {
	return inference.NewHealthProbe(cfg.Inference.BaseURL, cfg.Inference.ProbeTimeout)
}

func provideResultCache(cfg *config.Config, logger *slog.Logger) screening.ResultCache {
	if cfg.Cache.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return resultcache.NewMemoryCache()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return resultcache.NewMemoryCache()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("valkey result cache enabled", "addr", cfg.Cache.Valkey.Addr)
			return resultcache.NewValkeyCache(client, cfg.Cache.Valkey.Prefix, logger)
		}
	}
	return resultcache.NewMemoryCache()
}

func provideOfflineQueue(cfg *config.Config, logger *slog.Logger) screening.OfflineQueue {
	fallback := offlinequeue.NewMemoryQueue()
	dsn := strings.TrimSpace(cfg.Queue.Postgres.DSN)
	if dsn == "" {
		logger.Info("queue postgres dsn not set, using memory queue")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory queue", "error", err)
		return fallback
	}
	if cfg.Queue.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Queue.Postgres.MaxConns
	}
	if cfg.Queue.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Queue.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory queue", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory queue", "error", err)
		pool.Close()
		return fallback
	}
	queue := offlinequeue.NewPostgresQueue(pool, logger)
	if err := queue.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure queue schema, using memory queue", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres offline queue enabled")
	return queue
}

func provideScanArchive(cfg *config.Config, logger *slog.Logger) screening.ScanArchive {
	if !cfg.Archive.Enabled {
		return scanarchive.NewMemoryArchive()
	}
	archive, err := scanarchive.NewMinioArchive(
		cfg.Archive.Endpoint,
		cfg.Archive.AccessKey,
		cfg.Archive.SecretKey,
		cfg.Archive.Bucket,
		cfg.Archive.Region,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize scan archive, using memory archive", "error", err)
		return scanarchive.NewMemoryArchive()
	}
	logger.Info("scan archive enabled", "bucket", cfg.Archive.Bucket)
	return archive
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Cache.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Cache.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Cache.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
