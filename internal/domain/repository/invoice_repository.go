package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	GetByID(ctx context.Context, id int64) (*model.Invoice, error)
	GetByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter model.InvoiceFilter) ([]model.Invoice, int64, error)
	Stats(ctx context.Context) (*model.InvoiceStats, error)

	// UpdateStatus changes status only while the current status is one of from.
	// It returns false when no row matched.
	UpdateStatus(ctx context.Context, id int64, from []model.InvoiceStatus, to model.InvoiceStatus) (bool, error)

	// AttachPayment records paymentID on the invoice without touching its status.
	AttachPayment(ctx context.Context, id, paymentID int64) error

	// MarkPaid sets status paid, paidAt and the payment link unless the invoice is already paid.
	MarkPaid(ctx context.Context, id, paymentID int64, paidAt time.Time) (bool, error)

	// MarkOverdue flags every sent invoice due before now and returns the count.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	Delete(ctx context.Context, id int64) error
}
