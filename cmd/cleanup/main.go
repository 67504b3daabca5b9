package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"schoolbooking/internal/config"
	"schoolbooking/internal/database"
	"schoolbooking/internal/pkg/logger"
	"schoolbooking/internal/repository"
)

// One-shot purge of old cancelled reservations, for cron when the API's own
// housekeeping loop is disabled.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	before := time.Now().UTC().Add(-cfg.Retention())
	n, err := repository.NewReservationRepository(db).PurgeCancelled(ctx, before)
	if err != nil {
		log.Fatal().Err(err).Msg("cleanup cancelled reservations failed")
	}
	log.Info().Int64("reservations", n).Time("before", before).Msg("cleanup completed")
}
