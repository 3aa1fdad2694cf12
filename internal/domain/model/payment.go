package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusSucceeded:  {PaymentStatusRefunded},
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors lists the states from which s can be reached.
func (s PaymentStatus) Predecessors() []PaymentStatus {
	var from []PaymentStatus
	for _, src := range []PaymentStatus{PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSucceeded} {
		if src.CanTransitionTo(s) {
			from = append(from, src)
		}
	}
	return from
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the money was collected.
type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Payment is one payment attempt. Rows are inserted as pending by the
// creation flow and only moved forward by reconciliation.
type Payment struct {
	ID              int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber   string            `gorm:"size:32;uniqueIndex;not null" json:"invoice_number"`
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_payments_user_created,priority:1" json:"user_id"`
	ProjectID       *uuid.UUID        `gorm:"type:uuid;index" json:"project_id,omitempty"`
	InvoiceID       *int64            `gorm:"index" json:"invoice_id,omitempty"`
	AmountCents     money.Minor       `gorm:"not null" json:"amount_cents"`
	Currency        string            `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	Status          PaymentStatus     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Method          PaymentMethod     `gorm:"size:20;not null;default:'stripe'" json:"payment_method"`
	GatewayIntentID *string           `gorm:"size:255;uniqueIndex" json:"gateway_intent_id,omitempty"`
	GatewayChargeID *string           `gorm:"size:255" json:"gateway_charge_id,omitempty"`
	Description     string            `gorm:"type:text" json:"description"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	FailureCode     *string           `gorm:"size:100" json:"failure_code,omitempty"`
	FailureMessage  *string           `gorm:"type:text" json:"failure_message,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	CreatedAt       time.Time         `gorm:"index:idx_payments_user_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// Amount returns the amount in currency units.
func (p *Payment) Amount() string {
	return money.FromMinor(p.AmountCents, p.Currency).StringFixed(money.Exponent(p.Currency))
}

// PaymentTransition carries the fields written together with a status change.
type PaymentTransition struct {
	To             PaymentStatus
	ChargeID       string
	FailureCode    string
	FailureMessage string
	At             time.Time
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	UserID    *uuid.UUID
	Status    PaymentStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// RevenueStats aggregates succeeded payments.
type RevenueStats struct {
	TotalRevenue      money.Minor `json:"total_revenue_cents"`
	TotalTransactions int64       `json:"total_transactions"`
}
