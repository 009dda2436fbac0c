package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// OpenDB connects to the configured store. sqlite is the default; postgres
// is used when DB_DRIVER=postgres and every DB_* variable is set.
func OpenDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBPass == "" || cfg.DBName == "" || cfg.DBPort == "" {
			return nil, fmt.Errorf("database env missing: DB_HOST, DB_USER, DB_PASS, DB_NAME and DB_PORT are required for postgres")
		}
		dialector = postgres.Open(cfg.postgresDSN())
	case "sqlite", "":
		// foreign keys are off by default in sqlite
		dialector = sqlite.Open(cfg.DBPath + "?_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         newGormLogger(),
		TranslateError: true,
	}
}

// gormWriter hands gorm's formatted log lines to zerolog.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(strings.TrimSpace(format), args...)
}

// newGormLogger reports store errors and slow queries; a missing row is an
// expected outcome for lookups and is not logged.
func newGormLogger() logger.Interface {
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// InitDB opens the store, migrates the schema and seeds first-run data.
func InitDB(cfg Config) error {
	db, err := OpenDB(cfg)
	if err != nil {
		return err
	}
	DB = db

	if err := Migrate(DB); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := EnsureAdmin(ctx, DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}
	seed, err := LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	if err := SeedCatalog(ctx, DB, seed); err != nil {
		return err
	}

	log.Info().Str("driver", cfg.DBDriver).Msg("database connected and migrated")
	return nil
}

// Migrate all models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Booking{}, &Service{}, &Hall{}, &Package{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// PingDB reports whether the store answers.
func PingDB(ctx context.Context) error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
