package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/infrastructure/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the PostgreSQL schema and create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(rt *runtime) error {
				if err := database.Migrate(rt.infra.DB, rt.logger); err != nil {
					return err
				}
				if err := rt.services.NotificationRepository.EnsureIndexes(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migration completed")
				return nil
			})
		},
	}
}

func invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "mark-overdue",
		Short: "Move sent invoices past their due date to overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(rt *runtime) error {
				n, err := rt.services.Invoices.MarkOverdue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", n)
				return nil
			})
		},
	})

	return cmd
}

func paymentsCmd() *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Ask the gateway about payments stuck in pending or processing",
		Long: `Reconcile payments whose webhook never arrived.

Every pending or processing payment last updated before --older-than is
checked against the gateway and moved to the state the gateway reports.
Owners are notified exactly as if the webhook had been delivered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withRuntime(cmd.Context(), func(rt *runtime) error {
				before := time.Now().Add(-olderThan)
				n, err := rt.services.Reconciler.ReconcileStale(cmd.Context(), before, limit)
				if err != nil {
					return err
				}
				rt.logger.Info("Stale payments reconciled", zap.Int("moved", n), zap.Time("before", before))
				fmt.Fprintf(cmd.OutOrStdout(), "%d payment(s) moved\n", n)
				return nil
			})
		},
	}
	reconcile.Flags().DurationVar(&olderThan, "older-than", 15*time.Minute, "only payments not updated for this long")
	reconcile.Flags().IntVarP(&limit, "limit", "n", 100, "maximum payments to check")

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment maintenance",
	}
	cmd.AddCommand(reconcile)
	return cmd
}

func webhooksCmd() *cobra.Command {
	var limit int

	replay := &cobra.Command{
		Use:   "replay",
		Short: "Reprocess stored webhook events that failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(rt *runtime) error {
				res, err := rt.services.Reconciler.ReplayFailedEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "completed=%d ignored=%d failed=%d\n", res.Completed, res.Ignored, res.Failed)
				return nil
			})
		},
	}
	replay.Flags().IntVarP(&limit, "limit", "n", 50, "maximum events to replay")

	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Webhook event maintenance",
	}
	cmd.AddCommand(replay)
	return cmd
}
