package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/runtrack/internal/api"
	"example.com/runtrack/internal/auth"
	"example.com/runtrack/internal/config"
	"example.com/runtrack/internal/domain"
	"example.com/runtrack/internal/logging"
	"example.com/runtrack/internal/outbox"
	persistence "example.com/runtrack/internal/persistence/postgres"
	httptransport "example.com/runtrack/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.New("api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	users := persistence.NewUsers(pool)
	runs := persistence.NewRuns(pool)
	goals := persistence.NewGoals(pool)
	challenges := persistence.NewChallenges(pool)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, logging.New("outbox"), cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	go dispatcher.Start(ctx)

	recorder := domain.NewRecorder(users, runs, goals)
	aggregator := domain.NewAggregator(runs, goals)
	ranking := domain.NewRanking(runs)
	goalService := domain.NewGoals(goals)
	challengeService := domain.NewChallenges(challenges)

	handler := api.NewHandler(recorder, aggregator, ranking, challengeService, goalService)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logging.AccessLog(logger, authMiddleware.Wrap(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("address", cfg.HTTPAddress).Info("api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}

	dispatcher.Wait()
}
