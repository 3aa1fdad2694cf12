package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*model.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error)
	List(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int64, error)
	RevenueStats(ctx context.Context) (*model.RevenueStats, error)

	// Transition moves the payment owning intentID to t.To only while its
	// current status is one of from. applied is false when the row exists but
	// was already past from; the current row is returned in both cases.
	Transition(ctx context.Context, intentID string, from []model.PaymentStatus, t model.PaymentTransition) (payment *model.Payment, applied bool, err error)

	// ListStale returns gateway payments in the given statuses not updated since before.
	ListStale(ctx context.Context, statuses []model.PaymentStatus, before time.Time, limit int) ([]model.Payment, error)
}
