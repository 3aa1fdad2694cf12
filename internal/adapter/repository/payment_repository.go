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

const defaultListLimit = 50

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if err := conn(ctx, r.db).Create(payment).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("invoice_number", payment.InvoiceNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *paymentRepository) GetByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID))
}

func (r *paymentRepository) GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).Where("gateway_intent_id = ?", intentID))
}

func (r *paymentRepository) first(q *gorm.DB) (*model.Payment, error) {
	var payment model.Payment
	if err := q.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Model(&model.Payment{})
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
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var payments []model.Payment
	err := conn(ctx, r.db).Scopes(scope).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, total, nil
}

func (r *paymentRepository) RevenueStats(ctx context.Context) (*model.RevenueStats, error) {
	var row struct {
		TotalRevenue      int64
		TotalTransactions int64
	}

	err := conn(ctx, r.db).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0) AS total_revenue, COUNT(*) AS total_transactions").
		Where("status = ?", model.PaymentStatusSucceeded).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}

	return &model.RevenueStats{
		TotalRevenue:      money.Minor(row.TotalRevenue),
		TotalTransactions: row.TotalTransactions,
	}, nil
}

func (r *paymentRepository) Transition(ctx context.Context, intentID string, from []model.PaymentStatus, t model.PaymentTransition) (*model.Payment, bool, error) {
	if t.At.IsZero() {
		t.At = time.Now()
	}

	updates := map[string]interface{}{
		"status":     t.To,
		"updated_at": t.At,
	}
	if t.To == model.PaymentStatusSucceeded {
		updates["paid_at"] = t.At
	}
	if t.ChargeID != "" {
		updates["gateway_charge_id"] = t.ChargeID
	}
	if t.FailureCode != "" {
		updates["failure_code"] = t.FailureCode
	}
	if t.FailureMessage != "" {
		updates["failure_message"] = t.FailureMessage
	}

	result := conn(ctx, r.db).Model(&model.Payment{}).
		Where("gateway_intent_id = ? AND status IN ?", intentID, from).
		Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to transition payment",
			zap.String("intent_id", intentID),
			zap.String("to", string(t.To)),
			zap.Error(result.Error))
		return nil, false, fmt.Errorf("failed to transition payment: %w", result.Error)
	}

	payment, err := r.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, false, err
	}

	return payment, result.RowsAffected == 1, nil
}

func (r *paymentRepository) ListStale(ctx context.Context, statuses []model.PaymentStatus, before time.Time, limit int) ([]model.Payment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var payments []model.Payment
	err := conn(ctx, r.db).
		Where("status IN ? AND updated_at < ? AND gateway_intent_id IS NOT NULL", statuses, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	return payments, nil
}
