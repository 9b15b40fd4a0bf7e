// Standalone expiration sweeper. Runs the same sweep the server's recurring
// job runs, for deployments that keep the API instances free of background
// work. Pass -once for a single sweep instead of the recurring job.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"holds-service/internal/clock"
	"holds-service/internal/config"
	"holds-service/internal/repository"
	"holds-service/internal/sweeper"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	reservationsRepo := repository.NewReservationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	swp, err := sweeper.NewSweeper(reservationsRepo, outboxRepo, clock.NewSystem(), cfg.ExpirationBatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sweeper")
	}

	if *once {
		result, err := swp.ExpireOldReservations(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Sweep failed")
		}
		log.Info().Int("expired", result.ExpiredCount).Msg("Sweep complete")
		return
	}

	job := sweeper.NewJob(swp)
	job.Start(cfg.ExpirationInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	job.Stop()
	log.Info().Msg("Sweeper stopped")
}
