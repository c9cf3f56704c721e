// Command worker consumes merge events and records their lineage in Neo4j
// and their audit trail in PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ClairePA/ChemistryToolkit/internal/application/lineage"
	"github.com/ClairePA/ChemistryToolkit/internal/bootstrap"
	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/messaging/kafka"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/admin"
	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/http/handlers"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

const defaultHealthAddr = ":8081"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env only when empty)")
	workers := flag.Int("workers", 0, "number of consumers in the group (overrides worker.concurrency)")
	healthAddr := flag.String("health-addr", defaultHealthAddr, "listen address of /healthz, /readyz, /stats and /metrics")
	flag.Parse()

	if err := run(*configPath, *workers, *healthAddr); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workers int, healthAddr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if !cfg.Kafka.Enabled {
		return errors.New("kafka must be enabled for the worker")
	}
	if workers > 0 {
		cfg.Worker.Concurrency = workers
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logging.SetDefault(logger)
	logger = logger.Named("worker")
	if cfg.Log.Level != logging.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("starting worker",
		logging.String("version", Version),
		logging.String("commit", GitCommit),
		logging.Int("consumers", cfg.Worker.Concurrency),
		logging.String("topic", kafka.TopicMoleculeMerged),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, metrics, err := bootstrap.Metrics(cfg.Metrics, "worker", logger)
	if err != nil {
		return err
	}

	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close(context.Background())

	recorder, err := lineage.NewMergeRecorder(backends.Lineage(), backends.MergeRecords(),
		cfg.Worker.HandlerTimeout, metrics, logger)
	if err != nil {
		return err
	}

	retry := kafka.RetryPolicy{
		MaxRetries:      cfg.Worker.MaxRetries,
		Backoff:         cfg.Worker.RetryBackoff,
		DeadLetterTopic: kafka.TopicDeadLetter,
	}
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(cfg.Kafka, []string{kafka.TopicMoleculeMerged}, retry,
			logger.With(logging.Int("consumer", i)))
		if err != nil {
			return err
		}
		c.Subscribe(kafka.TopicMoleculeMerged, recorder.Handle)
		if err := c.Start(ctx); err != nil {
			return err
		}
		consumers = append(consumers, c)
	}

	checkers := make([]handlers.HealthChecker, 0, len(backends.Checkers()))
	for _, c := range backends.Checkers() {
		checkers = append(checkers, c)
	}
	health := handlers.NewHealthHandler(Version, "", checkers...)
	adminCfg := admin.Config{
		Version:     Version,
		Health:      health,
		MetricsPath: cfg.Metrics.Path,
		Logger:      logger,
		Stats: func() (processed, failed int64) {
			for _, c := range consumers {
				p, f := c.Stats()
				processed += p
				failed += f
			}
			return processed, failed
		},
	}
	if collector != nil {
		adminCfg.Metrics = collector.Handler()
	}
	r := admin.NewRouter(adminCfg)
	srv := &http.Server{Addr: healthAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	l, err := net.Listen("tcp", healthAddr)
	if err != nil {
		return fmt.Errorf("health listener: %w", err)
	}
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining consumers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown failed", logging.Err(err))
	}

	processed, failed := adminCfg.Stats()
	logger.Info("worker stopped", logging.Int64("processed", processed), logging.Int64("failed", failed))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
