// API server entry point: wires the similarity engine, its PostgreSQL
// corpus source, the Redis result cache, Kafka alerting, and the HTTP
// transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlands/caselens/internal/application/match"
	"github.com/openlands/caselens/internal/application/statistics"
	"github.com/openlands/caselens/internal/config"
	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/database/postgres"
	"github.com/openlands/caselens/internal/infrastructure/database/postgres/repositories"
	rediscache "github.com/openlands/caselens/internal/infrastructure/database/redis"
	"github.com/openlands/caselens/internal/infrastructure/messaging/kafka"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/openlands/caselens/internal/interfaces/http"
	"github.com/openlands/caselens/internal/interfaces/http/handlers"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults to CASELENS_* environment variables)")
	migrateFlag := flag.Bool("migrate", false, "run pending schema migrations before serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting caselens api server", logging.Int("port", cfg.Server.Port))

	if err := run(cfg, logger, *migrateFlag); err != nil {
		logger.Fatal("api server failed", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "caselens",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// ── PostgreSQL ────────────────────────────────────────────────────────────
	if migrate {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), "file://"+cfg.Database.MigrationPath); err != nil {
			return err
		}
		logger.Info("schema migrations applied")
	}

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	repo := repositories.NewHistoryRepository(conn.Pool(), logger)

	// ── Redis cache (optional) ────────────────────────────────────────────────
	var cache rediscache.Cache
	redisClient, err := rediscache.NewClient(cfg.Redis, logger)
	if err != nil {
		// The engine serves fine without a cache; every query just scans.
		logger.Warn("redis unavailable, serving without result cache", logging.Err(err))
	} else {
		defer redisClient.Close()
		cache = rediscache.NewCache(redisClient, logger,
			rediscache.WithPrefix(cfg.Redis.KeyPrefix),
			rediscache.WithDefaultTTL(cfg.Redis.DefaultTTL))
	}

	// ── Kafka producer (optional) ─────────────────────────────────────────────
	var producer *kafka.Producer
	producer, err = kafka.NewProducer(cfg.Kafka, "apiserver", logger)
	if err != nil {
		logger.Warn("kafka unavailable, duplicate alerts disabled", logging.Err(err))
		producer = nil
	} else {
		defer producer.Close()
	}

	// ── Engine and application services ──────────────────────────────────────
	engine, err := casefile.NewEngine(cfg.Engine.EngineOptions(), repo, logger)
	if err != nil {
		return err
	}

	refreshCtx, cancel := context.WithTimeout(ctx, cfg.Corpus.RefreshTimeout)
	if err := engine.Refresh(refreshCtx, cfg.Corpus.Datasets); err != nil {
		// Rank and Stats return CORPUS_003 until the first refresh lands.
		logger.Error("initial corpus refresh failed, serving not-ready until retry", logging.Err(err))
	}
	cancel()

	matchOpts := []match.Option{match.WithMetrics(metrics)}
	if cache != nil {
		matchOpts = append(matchOpts, match.WithCache(cache, cfg.Redis.DefaultTTL))
	}
	if producer != nil {
		matchOpts = append(matchOpts, match.WithPublisher(producer))
	}
	matchSvc := match.NewService(engine, cfg.Corpus.Datasets, logger, matchOpts...)

	statsOpts := []statistics.Option{statistics.WithMetrics(metrics)}
	if cache != nil {
		statsOpts = append(statsOpts, statistics.WithCache(cache, cfg.Redis.DefaultTTL))
	}
	statsSvc := statistics.NewService(engine, logger, statsOpts...)

	// ── Background refresh: scheduled and event-driven ────────────────────────
	go refreshLoop(ctx, matchSvc, cfg.Corpus.RefreshInterval, logger)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.TopicCorpusRefresh, refreshHandler(matchSvc, logger), logger)
	if err != nil {
		logger.Warn("kafka consumer unavailable, event-driven refresh disabled", logging.Err(err))
	} else {
		if err := consumer.Start(ctx); err != nil {
			logger.Warn("failed to start corpus refresh consumer", logging.Err(err))
		} else {
			defer consumer.Stop()
		}
	}

	// ── HTTP transport ────────────────────────────────────────────────────────
	checkers := []handlers.HealthChecker{
		handlers.CheckFunc{ComponentName: "postgres", Fn: conn.HealthCheck},
	}
	if redisClient != nil && cache != nil {
		checkers = append(checkers, handlers.CheckFunc{ComponentName: "redis", Fn: redisClient.Ping})
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		MatchHandler:      handlers.NewMatchHandler(matchSvc, logger),
		StatisticsHandler: handlers.NewStatisticsHandler(statsSvc, logger),
		CorpusHandler:     handlers.NewCorpusHandler(matchSvc, logger),
		HealthHandler:     handlers.NewHealthHandler(version(), checkers...),
		Logger:            logger,
		Metrics:           metrics,
		MetricsCollector:  collector,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return server.Stop(shutdownCtx)
}

// refreshLoop refreshes the snapshot on the configured interval so newly
// imported cases become visible without a restart.
func refreshLoop(ctx context.Context, svc match.Service, interval time.Duration, logger logging.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Refresh(ctx, &match.RefreshInput{Trigger: "schedule"}); err != nil {
				logger.Error("scheduled corpus refresh failed", logging.Err(err))
			}
		}
	}
}

// refreshHandler reacts to corpus refresh events published after imports.
func refreshHandler(svc match.Service, logger logging.Logger) kafka.EnvelopeHandler {
	return func(ctx context.Context, env *kafka.EventEnvelope) error {
		if env.EventType != kafka.EventTypeCorpusRefreshRequested {
			logger.Warn("ignoring unexpected event type", logging.String("event_type", env.EventType))
			return nil
		}
		var payload kafka.CorpusRefreshRequestedPayload
		if err := env.DecodePayload(&payload); err != nil {
			return err
		}
		_, err := svc.Refresh(ctx, &match.RefreshInput{Datasets: payload.Datasets, Trigger: "event"})
		return err
	}
}

func version() string {
	if v := os.Getenv("CASELENS_VERSION"); v != "" {
		return v
	}
	return "dev"
}
