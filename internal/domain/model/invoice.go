package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors lists the states from which s can be reached.
func (s InvoiceStatus) Predecessors() []InvoiceStatus {
	var from []InvoiceStatus
	for _, src := range []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue} {
		if src.CanTransitionTo(s) {
			from = append(from, src)
		}
	}
	return from
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice is a billing document. Totals are derived from Items by Recompute
// and never written on their own.
type Invoice struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber string          `gorm:"size:32;uniqueIndex;not null" json:"invoice_number"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	ProjectID     *uuid.UUID      `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	SubtotalCents money.Minor     `gorm:"not null" json:"subtotal_cents"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxCents      money.Minor     `gorm:"not null" json:"tax_cents"`
	TotalCents    money.Minor     `gorm:"not null" json:"total_cents"`
	Currency      string          `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	Status        InvoiceStatus   `gorm:"size:20;not null;default:'draft';index" json:"status"`
	DueDate       time.Time       `gorm:"not null;index" json:"due_date"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	PaymentID     *int64          `gorm:"index" json:"payment_id,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is one ordered line of an invoice.
type InvoiceItem struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	InvoiceID      int64           `gorm:"not null;index" json:"-"`
	Position       int             `gorm:"not null" json:"position"`
	Description    string          `gorm:"type:text;not null" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"quantity"`
	UnitPriceCents money.Minor     `gorm:"not null" json:"unit_price_cents"`
	TotalCents     money.Minor     `gorm:"not null" json:"total_cents"`
}

// TableName specifies the table name for GORM
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// Recompute derives every line total and the invoice totals from Items and TaxRate.
func (i *Invoice) Recompute() error {
	lines := make([]money.LineItem, len(i.Items))
	for idx, item := range i.Items {
		lines[idx] = money.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPriceCents,
		}
	}

	totals, err := money.ComputeInvoice(lines, i.TaxRate)
	if err != nil {
		return err
	}

	for idx := range i.Items {
		i.Items[idx].Position = idx + 1
		i.Items[idx].TotalCents = totals.Lines[idx]
	}
	i.SubtotalCents = totals.Subtotal
	i.TaxCents = totals.Tax
	i.TotalCents = totals.Total
	return nil
}

// EffectiveStatus reports overdue for a sent invoice whose due date has passed,
// even before the batch sweep persisted it.
func (i *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceStatusSent && now.After(i.DueDate) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	UserID    *uuid.UUID
	Status    InvoiceStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// InvoiceStats aggregates paid invoices.
type InvoiceStats struct {
	TotalPaid money.Minor `json:"total_paid_cents"`
	PaidCount int64       `json:"paid_count"`
}
