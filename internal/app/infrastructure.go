package app

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	handlers "github.com/wekeepgrowing/portal-billing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/infrastructure/database"
	mongoinfra "github.com/wekeepgrowing/portal-billing/internal/infrastructure/mongo"
	"github.com/wekeepgrowing/portal-billing/pkg/messaging"
)

// Infrastructure holds the open connections shared by the server and the CLI.
type Infrastructure struct {
	DB    *gorm.DB
	Mongo *mongo.Client
	// Redis is nil when redis.addr is empty.
	Redis messaging.RedisClient

	logger *zap.Logger
}

// NewInfrastructure connects to PostgreSQL, MongoDB and, when configured,
// Redis. Connections opened before a failure are closed again.
func NewInfrastructure(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: logger}

	db, err := database.NewConnection(&cfg.Database, cfg.Log.GormLevel, logger)
	if err != nil {
		return nil, err
	}
	infra.DB = db

	client, err := mongoinfra.NewConnection(ctx, cfg.Mongo, logger)
	if err != nil {
		infra.Close(ctx)
		return nil, err
	}
	infra.Mongo = client

	if cfg.Redis.Enabled() {
		redisClient, err := messaging.NewRedisClient(ctx, messaging.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			infra.Close(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		infra.Redis = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Info("Redis not configured, live notifications disabled")
	}

	return infra, nil
}

// Close releases every open connection. Errors are logged.
func (i *Infrastructure) Close(ctx context.Context) {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	if i.Mongo != nil {
		if err := mongoinfra.Close(ctx, i.Mongo, i.logger); err != nil {
			i.logger.Error("Failed to close mongodb connection", zap.Error(err))
		}
	}
	if i.DB != nil {
		if err := database.Close(i.DB, i.logger); err != nil {
			i.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
}

// HealthChecks pings each backing store.
func (i *Infrastructure) HealthChecks() []handlers.HealthCheck {
	checks := []handlers.HealthCheck{
		{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := i.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "mongodb", Check: func(ctx context.Context) error {
			return i.Mongo.Ping(ctx, nil)
		}},
	}
	if i.Redis != nil {
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: i.Redis.Ping})
	}
	return checks
}
