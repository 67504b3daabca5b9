package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"schoolbooking/internal/config"
	"schoolbooking/internal/database"
	"schoolbooking/internal/metrics"
	"schoolbooking/internal/modules/reservations"
	"schoolbooking/internal/pkg/logger"
	"schoolbooking/internal/server"
)

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
	if err := database.Migrate(db, log); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	app := server.New(server.Options{Config: cfg, DB: db, Redis: rdb, Logger: log})
	defer app.Hub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers := []*http.Server{{
		Addr:              cfg.HTTP.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
	}}
	servers = append(servers, &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.HealthCheckPort),
		Handler:           server.NewHealth(db, rdb).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	})
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler:           server.MetricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", srv.Addr).Msg("server error")
				stop()
			}
		}(srv)
	}

	if cfg.Housekeeping.Enabled {
		go housekeeping(ctx, app.Reservations, cfg.HousekeepingInterval(), cfg.Retention(), log)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("shutdown")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// housekeeping drops cancelled reservations once they are older than retention.
func housekeeping(ctx context.Context, svc *reservations.Service, every, retention time.Duration, log zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := svc.PurgeCancelled(ctx, retention); err != nil {
				log.Error().Err(err).Msg("purge cancelled reservations")
			}
		}
	}
}
