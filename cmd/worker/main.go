// Worker entry point: periodically syncs dataset CSV exports from object
// storage into PostgreSQL and publishes a corpus refresh event so API
// servers pick up the new cases.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlands/caselens/internal/config"
	"github.com/openlands/caselens/internal/infrastructure/database/postgres"
	"github.com/openlands/caselens/internal/infrastructure/database/postgres/repositories"
	"github.com/openlands/caselens/internal/infrastructure/dataset"
	"github.com/openlands/caselens/internal/infrastructure/messaging/kafka"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults to CASELENS_* environment variables)")
	once := flag.Bool("once", false, "run a single sync and exit")
	healthPort := flag.Int("health-port", 8081, "port for health and metrics endpoints")
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
	logger.Info("starting caselens worker",
		logging.Bool("once", *once),
		logging.Duration("interval", cfg.Corpus.RefreshInterval))

	if err := run(cfg, logger, *once, *healthPort); err != nil {
		logger.Fatal("worker failed", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger, once bool, healthPort int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "caselens",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	repo := repositories.NewHistoryRepository(conn.Pool(), logger)

	source, err := dataset.NewMinioSource(cfg.MinIO, logger)
	if err != nil {
		return err
	}

	producer, err := kafka.NewProducer(cfg.Kafka, "worker", logger)
	if err != nil {
		logger.Warn("kafka unavailable, refresh events disabled", logging.Err(err))
		producer = nil
	} else {
		defer producer.Close()
	}

	sync := &datasetSync{
		cfg:      cfg,
		source:   source,
		repo:     repo,
		producer: producer,
		metrics:  metrics,
		logger:   logger.Named("sync"),
	}

	if once {
		return sync.run(ctx)
	}

	go serveHealth(ctx, healthPort, collector, conn, logger)

	if err := sync.run(ctx); err != nil {
		logger.Error("initial dataset sync failed", logging.Err(err))
	}

	ticker := time.NewTicker(cfg.Corpus.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return nil
		case <-ticker.C:
			if err := sync.run(ctx); err != nil {
				logger.Error("dataset sync failed", logging.Err(err))
			}
		}
	}
}

// datasetSync pulls every configured dataset from object storage, upserts
// the records, and announces the change.
type datasetSync struct {
	cfg      *config.Config
	source   *dataset.MinioSource
	repo     *repositories.HistoryRepository
	producer *kafka.Producer
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
}

func (s *datasetSync) run(ctx context.Context) error {
	start := time.Now()
	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.Corpus.RefreshTimeout)
	defer cancel()

	records, err := s.source.LoadCases(syncCtx, s.cfg.Corpus.Datasets)
	if err != nil {
		s.metrics.RecordError("worker", "load")
		return err
	}
	if err := s.repo.InsertCases(syncCtx, records); err != nil {
		s.metrics.RecordError("worker", "insert")
		return err
	}

	s.logger.Info("dataset sync completed",
		logging.Int("records", len(records)),
		logging.Duration("duration", time.Since(start)))

	if s.producer != nil {
		err := s.producer.PublishCorpusRefresh(ctx, kafka.CorpusRefreshRequestedPayload{
			Datasets:    s.cfg.Corpus.Datasets,
			RequestedBy: "worker",
			RequestedAt: time.Now().UTC(),
		})
		if err != nil {
			// The scheduled refresh on the API side still picks the data up.
			s.logger.Warn("failed to publish corpus refresh event", logging.Err(err))
		}
	}
	return nil
}

// serveHealth exposes liveness and metrics for the worker process.
func serveHealth(ctx context.Context, port int, collector prometheus.MetricsCollector, conn *postgres.Connection, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker health endpoint listening", logging.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("worker health endpoint failed", logging.Err(err))
	}
}
