package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.Sequence{},
		&model.Payment{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.WebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	if db.Dialector.Name() == "postgres" {
		logger.Info("Creating custom indexes...")
		if err := createCustomIndexes(db); err != nil {
			logger.Error("Failed to create custom indexes", zap.Error(err))
			return err
		}
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes and checks gorm tags cannot express
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_retryable ON webhook_events (created_at) WHERE status IN ('pending', 'failed')`,
		`CREATE INDEX IF NOT EXISTS idx_payments_open ON payments (updated_at) WHERE status IN ('pending', 'processing')`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_sent_due ON invoices (due_date) WHERE status = 'sent'`,
		`DO $$ BEGIN
			ALTER TABLE invoices ADD CONSTRAINT chk_invoices_total CHECK (total_cents = subtotal_cents + tax_cents);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE invoices ADD CONSTRAINT chk_invoices_paid CHECK (status <> 'paid' OR (paid_at IS NOT NULL AND payment_id IS NOT NULL));
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE payments ADD CONSTRAINT chk_payments_amount CHECK (amount_cents >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
