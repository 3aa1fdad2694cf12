package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/app"
	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/pkg/logger"
)

var (
	Version = "dev"

	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "billingctl",
		Short:         "Maintenance tasks for the billing service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to CONFIG_PATH or ./configs/billing.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(invoicesCmd())
	rootCmd.AddCommand(paymentsCmd())
	rootCmd.AddCommand(webhooksCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime is what every subcommand works with.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	infra    *app.Infrastructure
	services *app.Services
}

// withRuntime loads config, connects and hands the wired services to fn.
// Connections are closed when fn returns.
func withRuntime(ctx context.Context, fn func(rt *runtime) error) error {
	if configPath != "" {
		if err := os.Setenv("CONFIG_PATH", configPath); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.NewZapLogger(logger.Config{
		Level:  level,
		Format: "console",
		Output: "stderr",
		Fields: map[string]string{"service": cfg.Service.Name, "component": "billingctl"},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	infra, err := app.NewInfrastructure(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close(context.Background())

	return fn(&runtime{
		cfg:      cfg,
		logger:   log,
		infra:    infra,
		services: app.NewServices(cfg, infra, log),
	})
}
