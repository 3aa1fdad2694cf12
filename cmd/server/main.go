package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/app"
	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/portal-billing/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/portal-billing/internal/infrastructure/http"
	"github.com/wekeepgrowing/portal-billing/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
		Fields: map[string]string{
			"service":     cfg.Service.Name,
			"environment": cfg.Service.Environment,
			"version":     cfg.Service.Version,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL, MongoDB and Redis
	infra, err := app.NewInfrastructure(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize infrastructure", zap.Error(err))
	}
	defer infra.Close(context.Background())

	// Run database migrations
	if err := database.Migrate(infra.DB, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	services := app.NewServices(cfg, infra, zapLogger)
	if err := services.NotificationRepository.EnsureIndexes(ctx); err != nil {
		zapLogger.Warn("Failed to ensure notification indexes", zap.Error(err))
	}

	// Initialize servers
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Services{
		Payments:      services.Payments,
		Invoices:      services.Invoices,
		Notifications: services.Notifications,
		Verifier:      services.Gateway,
		Webhooks:      services.Reconciler,
		HealthChecks:  infra.HealthChecks(),
	})
	grpcSrv := grpcServer.NewServer(cfg, zapLogger, services.Gateway.Enabled())

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	if cfg.Server.GRPC.Port > 0 {
		go func() {
			if err := grpcSrv.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	zapLogger.Info("Billing service started",
		zap.Bool("payments_enabled", services.Gateway.Enabled()),
		zap.String("gateway", services.Gateway.Name()),
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLogger.Info("Shutting down servers...", zap.String("signal", sig.String()))
	case err := <-errCh:
		zapLogger.Error("Server failed, shutting down", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
