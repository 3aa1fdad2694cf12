package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

type invoiceRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB, logger *zap.Logger) repository.InvoiceRepository {
	return &invoiceRepository{
		db:     db,
		logger: logger,
	}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the invoice and its items together.
func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	if err := conn(ctx, r.db).Create(invoice).Error; err != nil {
		r.logger.Error("Failed to create invoice",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id int64) (*model.Invoice, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *invoiceRepository) GetByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*model.Invoice, error) {
	return r.first(conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID))
}

func (r *invoiceRepository) first(q *gorm.DB) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := q.Preload("Items", orderedItems).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter model.InvoiceFilter) ([]model.Invoice, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Model(&model.Invoice{})
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.StartDate != nil {
			q = q.Where("created_at >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("created_at <= ?", *filter.EndDate)
		}
		return q
	}

	var total int64
	if err := conn(ctx, r.db).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var invoices []model.Invoice
	err := conn(ctx, r.db).Scopes(scope).
		Preload("Items", orderedItems).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}

	return invoices, total, nil
}

func (r *invoiceRepository) Stats(ctx context.Context) (*model.InvoiceStats, error) {
	var row struct {
		TotalPaid int64
		PaidCount int64
	}

	err := conn(ctx, r.db).Model(&model.Invoice{}).
		Select("COALESCE(SUM(total_cents), 0) AS total_paid, COUNT(*) AS paid_count").
		Where("status = ?", model.InvoiceStatusPaid).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}

	return &model.InvoiceStats{TotalPaid: money.Minor(row.TotalPaid), PaidCount: row.PaidCount}, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id int64, from []model.InvoiceStatus, to model.InvoiceStatus) (bool, error) {
	result := conn(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update invoice status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *invoiceRepository) AttachPayment(ctx context.Context, id, paymentID int64) error {
	result := conn(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ?", id).
		Update("payment_id", paymentID)
	if result.Error != nil {
		return fmt.Errorf("failed to attach payment to invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id, paymentID int64, paidAt time.Time) (bool, error) {
	result := conn(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND status <> ?", id, model.InvoiceStatusPaid).
		Updates(map[string]interface{}{
			"status":     model.InvoiceStatusPaid,
			"paid_at":    paidAt,
			"payment_id": paymentID,
			"updated_at": paidAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark invoice paid",
			zap.Int64("invoice_id", id),
			zap.Int64("payment_id", paymentID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to mark invoice paid: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&model.Invoice{}).
		Where("status = ? AND due_date < ?", model.InvoiceStatusSent, now).
		Updates(map[string]interface{}{
			"status":     model.InvoiceStatusOverdue,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id int64) error {
	result := conn(ctx, r.db).Select("Items").Delete(&model.Invoice{ID: id})
	if result.Error != nil {
		return fmt.Errorf("failed to delete invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrInvoiceNotFound
	}
	return nil
}
