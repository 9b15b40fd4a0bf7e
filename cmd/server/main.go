package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"holds-service/internal/api"
	"holds-service/internal/clock"
	"holds-service/internal/config"
	"holds-service/internal/eligibility"
	"holds-service/internal/kafka"
	snapshotCache "holds-service/internal/redis"
	"holds-service/internal/remote"
	"holds-service/internal/repository"
	"holds-service/internal/service"
	"holds-service/internal/sweeper"
	syncsvc "holds-service/internal/sync"
)

// setupLogging configures structured logging
func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// initializeDatabase sets up and tests the database connection
func initializeDatabase(cfg *config.Config) *sqlx.DB {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}

	log.Info().Msg("Database connection established")
	return db
}

// initializeCache sets up the Redis snapshot store with cluster support
func initializeCache(cfg *config.Config) *snapshotCache.SnapshotStore {
	store := snapshotCache.NewSnapshotStore(snapshotCache.Options{
		Addrs:       cfg.RedisAddrs,
		Password:    cfg.RedisPassword,
		ClusterMode: cfg.RedisClusterMode,
		PoolSize:    cfg.RedisPoolSize,
		TTL:         24 * time.Hour,
		KeyPrefix:   cfg.RedisKeyPrefix,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	return store
}

// initializeKafka sets up the lifecycle event publisher
func initializeKafka(cfg *config.Config) *kafka.Publisher {
	log.Info().
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Str("topic", cfg.KafkaLifecycleTopic).
		Msg("Initializing Kafka publisher")
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaLifecycleTopic)
}

// createHoldsService wires the repositories, eligibility rules and sync layer
// into the record manager
func createHoldsService(
	holdsRepo *repository.HoldRepository,
	reservationsRepo *repository.ReservationRepository,
	outboxRepo *repository.OutboxRepository,
	syncer *syncsvc.Service,
	clk clock.Clock,
	cfg *config.Config,
) *service.HoldsService {
	serviceConfig := service.ServiceConfig{
		ReservationRetention: cfg.ReservationRetention,
	}

	log.Info().
		Dur("reservation_retention", serviceConfig.ReservationRetention).
		Dur("catalog_freshness", cfg.CatalogFreshness).
		Dur("profile_freshness", cfg.ProfileFreshness).
		Msg("Service configuration loaded")

	checker := eligibility.NewChecker(syncer, holdsRepo, reservationsRepo)

	holdsService, err := service.NewHoldsService(
		holdsRepo, reservationsRepo, outboxRepo, checker, syncer, clk, serviceConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create holds service")
	}

	return holdsService
}

// startHTTPServer starts the HTTP server
func startHTTPServer(cfg *config.Config, holdsService *service.HoldsService, job *sweeper.Job, syncer *syncsvc.Service) *http.Server {
	holdsHandler := api.NewHoldsHandler(holdsService)
	adminHandler := api.NewAdminHandler(job, syncer, cfg.ExpirationInterval)
	router := api.SetupRouter(holdsHandler, adminHandler)

	serverAddr := fmt.Sprintf("%s:%s", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Msg("Holds service HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	return server
}

// startOutboxWorker starts the outbox publisher with advisory locks
func startOutboxWorker(ctx context.Context, outboxRepo *repository.OutboxRepository, publisher *kafka.Publisher) {
	opts := kafka.PublisherOptions{
		LockKey:      874502913,
		BatchSize:    100,
		PollInterval: 500 * time.Millisecond,
	}

	go func() {
		publisher.RunOutboxPublisher(ctx, outboxRepo, opts)
	}()
}

// gracefulShutdown handles graceful shutdown of the service
func gracefulShutdown(server *http.Server, job *sweeper.Job, stopWorkers context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down holds service...")

	job.Stop()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Holds service stopped")
}

func main() {
	setupLogging()
	log.Info().Msg("Starting holds service...")

	cfg := config.LoadConfig()

	db := initializeDatabase(cfg)
	defer db.Close()

	cache := initializeCache(cfg)
	defer cache.Close()

	publisher := initializeKafka(cfg)
	defer publisher.Close()

	clk := clock.NewSystem()

	holdsRepo := repository.NewHoldRepository(db)
	reservationsRepo := repository.NewReservationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	catalogClient := remote.NewCatalogClient(cfg.CatalogBaseURL, cfg.SourceTimeout)
	userClient := remote.NewUserClient(cfg.UserBaseURL, cfg.SourceTimeout)
	syncer := syncsvc.NewService(catalogClient, userClient, cache, holdsRepo, clk,
		cfg.CatalogFreshness, cfg.ProfileFreshness)

	holdsService := createHoldsService(holdsRepo, reservationsRepo, outboxRepo, syncer, clk, cfg)

	swp, err := sweeper.NewSweeper(reservationsRepo, outboxRepo, clk, cfg.ExpirationBatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sweeper")
	}
	job := sweeper.NewJob(swp)
	if cfg.AutoStartExpiration {
		job.Start(cfg.ExpirationInterval)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	startOutboxWorker(workerCtx, outboxRepo, publisher)

	server := startHTTPServer(cfg, holdsService, job, syncer)

	gracefulShutdown(server, job, stopWorkers)
}
