package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/pkg/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// NewConnection opens the configured database and applies the pool settings.
// Opening is retried ConnectRetries times with a linear backoff so the
// service can start alongside its database.
func NewConnection(cfg *config.DatabaseConfig, gormLevel string, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   logger.NewGormLogger(log, logger.ParseGormLevel(gormLevel), slowQueryThreshold, true),
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	newDialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	for attempt := 0; ; attempt++ {
		db, err = open(newDialector(), cfg, gormCfg)
		if err == nil {
			break
		}
		if attempt >= cfg.ConnectRetries {
			return nil, err
		}
		wait := time.Duration(attempt+1) * time.Second
		log.Warn("Database not reachable, retrying",
			zap.String("driver", cfg.DriverName()),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		time.Sleep(wait)
	}

	log.Info("Database connection established",
		zap.String("driver", cfg.DriverName()),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
	)
	return db, nil
}

// dialectorFor returns a constructor so every attempt starts from a fresh dialector.
func dialectorFor(cfg *config.DatabaseConfig) (func() gorm.Dialector, error) {
	switch cfg.DriverName() {
	case config.DriverSQLite:
		return func() gorm.Dialector { return sqlite.Open(cfg.Path) }, nil
	case config.DriverPostgres:
		return func() gorm.Dialector { return postgres.Open(cfg.DSN()) }, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func open(dialector gorm.Dialector, cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	// Every connection to ":memory:" is a separate empty database.
	if cfg.DriverName() == config.DriverSQLite && cfg.Path == config.SQLiteMemory {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func Close(db *gorm.DB, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	log.Info("Database connection closed")
	return nil
}
