package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/quake-felt-service/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/quake-felt-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-felt-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-felt-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/quake-felt-service/internal/adapter/redis"
	"github.com/couchcryptid/quake-felt-service/internal/adapter/seismic"
	"github.com/couchcryptid/quake-felt-service/internal/config"
	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/couchcryptid/quake-felt-service/internal/observability"
	"github.com/couchcryptid/quake-felt-service/internal/service"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	regression, err := estimator.NewRegression(cfg.ModelTrees, cfg.ModelSeed)
	if err != nil {
		logger.Error("failed to fit regression model", "error", err)
		os.Exit(1)
	}
	metrics.ModelReady.Set(1)
	logger.Info("regression model fitted", "trees", cfg.ModelTrees, "seed", cfg.ModelSeed)
	estimators := estimator.NewSet(estimator.Formula{Clamp: cfg.FormulaClamp}, regression)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open report store", "store", cfg.ReportStore, "error", err)
		os.Exit(1)
	}
	logger.Info("report store ready", "store", cfg.ReportStore)

	var publisher service.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaReportsTopic, logger)
		publisher = writer
		logger.Info("kafka report publishing enabled", "topic", cfg.KafkaReportsTopic)
	} else {
		logger.Info("kafka report publishing disabled")
	}

	clock := clockwork.NewRealClock()
	fetcher := seismic.NewFetcher(
		cfg.UserAgent,
		cfg.FetchTimeout,
		seismic.RetryPolicy{MaxRetries: cfg.FetchMaxRetries, BackoffBase: cfg.FetchBackoffBase},
		clock,
		metrics,
		logger,
	)
	events := seismic.NewClient(fetcher, cfg.EventsURL, domain.Albania, metrics, logger)
	reports := service.New(store, estimators, publisher, cfg.StrictInputs, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, events, reports, fetcher.Budget(), logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore.Close(); err != nil {
		logger.Error("report store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the configured report store and its closer.
func openStore(ctx context.Context, cfg *config.Config) (service.ReportStore, io.Closer, error) {
	switch cfg.ReportStore {
	case config.StoreRedis:
		s, err := redisadapter.Open(ctx, redisadapter.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreFile:
		return filestore.New(cfg.ReportsFile), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown report store %q", cfg.ReportStore)
	}
}
