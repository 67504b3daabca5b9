package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"schoolbooking/internal/repository"
)

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Connect opens PostgreSQL for postgres:// DSNs and the pure-Go SQLite driver otherwise.
func Connect(dsn string, logger zerolog.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	if IsPostgres(dsn) {
		logger.Info().Msg("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), gcfg)
	}

	logger.Info().Str("dsn", dsn).Msg("using SQLite for local development")

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		gcfg,
	)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers; a single connection keeps transactions from
	// tripping over "database is locked".
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema and the indexes that back the
// reservation conflict rule at storage level.
func Migrate(db *gorm.DB, logger zerolog.Logger) error {
	if err := db.AutoMigrate(repository.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_confirmed_slot
			ON reservations (resource_id, start_time, end_time)
			WHERE status = 'confirmed'`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_resource_time
			ON reservations (resource_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id)`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	if db.Dialector.Name() == "postgres" {
		migratePostgresExclusion(db, logger)
	}
	return nil
}

// Overlap exclusion needs btree_gist, which some managed databases do not allow.
// Without it the unique index and the application lock still apply.
func migratePostgresExclusion(db *gorm.DB, logger zerolog.Logger) {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		logger.Warn().Err(err).Msg("btree_gist unavailable, skipping overlap constraint")
		return
	}
	var exists int64
	db.Raw(`SELECT COUNT(1) FROM pg_constraint WHERE conname = 'excl_reservations_overlap'`).Scan(&exists)
	if exists > 0 {
		return
	}
	err := db.Exec(`ALTER TABLE reservations ADD CONSTRAINT excl_reservations_overlap
		EXCLUDE USING gist (resource_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&)
		WHERE (status = 'confirmed')`).Error
	if err != nil {
		logger.Warn().Err(err).Msg("could not add overlap constraint")
	}
}

// Ping checks the database is reachable. Used by readiness probes.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
