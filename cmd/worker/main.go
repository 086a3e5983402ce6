// Package main provides the entry point for the papernet Temporal worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"

	"github.com/camrobjones/papernet/internal/alerts"
	"github.com/camrobjones/papernet/internal/cache"
	"github.com/camrobjones/papernet/internal/config"
	"github.com/camrobjones/papernet/internal/database"
	"github.com/camrobjones/papernet/internal/ingestion"
	"github.com/camrobjones/papernet/internal/observability"
	"github.com/camrobjones/papernet/internal/papersources"
	"github.com/camrobjones/papernet/internal/papersources/crossref"
	"github.com/camrobjones/papernet/internal/papersources/opencitations"
	"github.com/camrobjones/papernet/internal/repository"
	"github.com/camrobjones/papernet/internal/scheduler"
	"github.com/camrobjones/papernet/internal/temporal"
	"github.com/camrobjones/papernet/internal/temporal/activities"
	"github.com/camrobjones/papernet/internal/temporal/workflows"
	"github.com/camrobjones/papernet/migrations"
)

// version is reported in the upstream User-Agent.
const version = "1.1"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("papernet worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		if err := migrateUp(db, logger); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics("papernet")
	store := repository.NewStore(db, logger)

	// The memory store backs the ledger and the cache unless a shared
	// backend is configured for them.
	memory := papersources.NewMemoryStore(0)

	var (
		ledger papersources.CallLedger = memory
		pruner scheduler.LedgerPruner
	)
	if cfg.Limiter.Ledger == config.LedgerBackendPostgres {
		pgLedger := repository.NewPgRequestLogRepository(db, db, cfg.Limiter.LockKey)
		ledger = pgLedger
		pruner = pgLedger
		logger.Info().Int64("lock_key", cfg.Limiter.LockKey).Msg("using postgres request ledger")
	}

	var responseCache papersources.ResponseCache = memory
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close redis client")
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		responseCache = cache.NewRedisCache(redisClient, cfg.Redis.KeyPrefix)
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis response cache connected")
	}

	alertHooks := alerts.Multi{alerts.NewLogHook(logger, metrics)}
	if cfg.Kafka.Enabled {
		kafkaHook := alerts.NewKafkaHook(alerts.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, logger)
		defer func() {
			if err := kafkaHook.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka alert hook")
			}
		}()
		alertHooks = append(alertHooks, kafkaHook)
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka slow call alerts enabled")
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Crossref.Timeout,
		RateLimit: cfg.Crossref.RateLimit,
		BurstSize: cfg.Crossref.BurstSize,
		CacheTTL:  cfg.Crossref.CacheTTL,
		UserAgent: cfg.Crossref.UserAgent(version),
		Limiter: papersources.LimiterConfig{
			MaxRequestLength:   cfg.Limiter.MaxRequestLength,
			AlertRequestLength: cfg.Limiter.AlertRequestLength,
			MinWait:            cfg.Limiter.MinWait,
		},
	},
		papersources.WithLedger(ledger),
		papersources.WithCache(responseCache),
		papersources.WithAlertHook(alertHooks),
		papersources.WithMetrics(metrics),
		papersources.WithLogger(logger),
	)

	works := crossref.New(crossref.Config{
		BaseURL: cfg.Crossref.BaseURL,
		Mailto:  cfg.Crossref.Mailto,
		Rows:    cfg.Crossref.Rows,
	}, httpClient, logger)
	index := opencitations.New(opencitations.Config{
		BaseURL: cfg.OpenCitations.BaseURL,
	}, httpClient, logger)

	coordinator := ingestion.NewCoordinator(store, works, index, logger, ingestion.WithMetrics(metrics))

	// Create Temporal client.
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	workflowClient := temporal.NewIngestionWorkflowClient(temporalClient, temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	})
	defer workflowClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	w, err := temporal.NewWorker(temporalClient, temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue))
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	w.RegisterWorkflow(workflows.PaperIngestionWorkflow)
	w.RegisterWorkflow(workflows.BatchIngestionWorkflow)
	w.RegisterWorkflow(workflows.MissingReferenceSweepWorkflow)
	w.RegisterActivity(activities.NewIngestionActivities(coordinator, store))

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Config{
			SweepSchedule:   cfg.Scheduler.SweepSchedule,
			SweepLimit:      cfg.Scheduler.SweepLimit,
			PruneSchedule:   cfg.Scheduler.PruneSchedule,
			LedgerRetention: cfg.Scheduler.LedgerRetention,
		}, workflowClient, pruner, logger)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("scheduler did not stop cleanly")
			}
		}()
		logger.Info().Str("sweep_schedule", cfg.Scheduler.SweepSchedule).Msg("scheduler started")
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := temporal.StartWorker(ctx, w); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}

func migrateUp(db *database.DB, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, migrations.FS, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
