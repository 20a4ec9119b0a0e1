package db

import (
	"fmt"
	stlog "log"
	"time"

	"onethy/pkg/logger"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the relational store. The driver is chosen by name so the
// same binary can run against a local sqlite file or a shared postgres.
func Open(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	zlog := logger.GetLogger()

	var gormLogLevel gormlogger.LogLevel
	switch zlog.GetLevel().String() {
	case "debug", "trace":
		gormLogLevel = gormlogger.Info
	case "warn":
		gormLogLevel = gormlogger.Warn
	default:
		gormLogLevel = gormlogger.Error
	}

	gormLog := gormlogger.New(
		stlog.New(zlog, "", stlog.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Str("driver", driver).Msg("Database connection established")
	return conn, nil
}

// Migrate runs GORM's AutoMigrate for the given models.
func Migrate(conn *gorm.DB, modelsToMigrate ...interface{}) error {
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(modelsToMigrate) == 0 {
		return fmt.Errorf("no models provided for migration")
	}

	if err := conn.AutoMigrate(modelsToMigrate...); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	log.Info().Int("models", len(modelsToMigrate)).Msg("Database migration completed")
	return nil
}
