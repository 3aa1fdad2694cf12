package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
)

// CreatePaymentRequest is the body of POST /api/v1/payments. When Items is
// set the amount is taken from the generated invoice instead of Amount.
type CreatePaymentRequest struct {
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency" validate:"omitempty,len=3,alpha"`
	ProjectID   *uuid.UUID           `json:"projectId"`
	Description string               `json:"description" validate:"required,max=500"`
	Items       []InvoiceItemRequest `json:"items" validate:"omitempty,max=100,dive"`

	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-" validate:"omitempty,max=200"`
}

// CreatePaymentResponse carries what the client needs to confirm the payment.
type CreatePaymentResponse struct {
	ClientSecret  string          `json:"clientSecret"`
	PaymentID     int64           `json:"paymentId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Invoice       *InvoiceSummary `json:"invoice,omitempty"`
}

// InvoiceSummary is the short invoice view returned on payment creation.
type InvoiceSummary struct {
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoiceNumber"`
	Total         string `json:"total"`
	TotalCents    int64  `json:"totalCents"`
}

type PaymentResponse struct {
	ID              int64                  `json:"id"`
	InvoiceNumber   string                 `json:"invoiceNumber"`
	UserID          uuid.UUID              `json:"userId"`
	ProjectID       *uuid.UUID             `json:"projectId,omitempty"`
	InvoiceID       *int64                 `json:"invoiceId,omitempty"`
	Amount          string                 `json:"amount"`
	AmountCents     int64                  `json:"amountCents"`
	Currency        string                 `json:"currency"`
	Status          string                 `json:"status"`
	PaymentMethod   string                 `json:"paymentMethod"`
	GatewayIntentID string                 `json:"stripePaymentIntentId,omitempty"`
	Description     string                 `json:"description"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	FailureMessage  string                 `json:"failureMessage,omitempty"`
	PaidAt          *time.Time             `json:"paidAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// PaymentStatusResponse pairs the gateway's view with the local record.
type PaymentStatusResponse struct {
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	Payment       PaymentResponse `json:"payment"`
}

type PaymentListResponse struct {
	Payments   []PaymentResponse `json:"payments"`
	Pagination *PaginationMeta   `json:"pagination,omitempty"`
	Stats      *RevenueStats     `json:"stats,omitempty"`
}

type RevenueStats struct {
	TotalRevenue      string `json:"totalRevenue"`
	TotalRevenueCents int64  `json:"totalRevenueCents"`
	TotalTransactions int64  `json:"totalTransactions"`
}

// PaymentListQuery holds the filters of the payment list endpoints.
type PaymentListQuery struct {
	PaginationParams
	Status    string     `query:"status" validate:"omitempty,oneof=pending processing succeeded failed refunded"`
	UserID    *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

func ToPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		InvoiceNumber: p.InvoiceNumber,
		UserID:        p.UserID,
		ProjectID:     p.ProjectID,
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount(),
		AmountCents:   int64(p.AmountCents),
		Currency:      p.Currency,
		Status:        string(p.Status),
		PaymentMethod: string(p.Method),
		Description:   p.Description,
		Metadata:      p.Metadata,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
	if p.GatewayIntentID != nil {
		resp.GatewayIntentID = *p.GatewayIntentID
	}
	if p.FailureMessage != nil {
		resp.FailureMessage = *p.FailureMessage
	}
	return resp
}

func ToPaymentResponses(payments []model.Payment) []PaymentResponse {
	return lo.Map(payments, func(p model.Payment, _ int) PaymentResponse {
		return ToPaymentResponse(p)
	})
}

func ToRevenueStats(stats *model.RevenueStats, currency string) *RevenueStats {
	if stats == nil {
		return nil
	}
	return &RevenueStats{
		TotalRevenue:      money.FromMinor(stats.TotalRevenue, currency).StringFixed(money.Exponent(currency)),
		TotalRevenueCents: int64(stats.TotalRevenue),
		TotalTransactions: stats.TotalTransactions,
	}
}
