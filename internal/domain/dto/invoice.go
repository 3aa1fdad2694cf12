package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
)

// InvoiceItemRequest is one line item in currency units.
type InvoiceItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// CreateInvoiceRequest is the admin invoice creation body. Nil TaxRate and
// DueDays fall back to the configured defaults.
type CreateInvoiceRequest struct {
	UserID    uuid.UUID            `json:"userId" validate:"required"`
	ProjectID *uuid.UUID           `json:"projectId"`
	Items     []InvoiceItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	TaxRate   *decimal.Decimal     `json:"taxRate"`
	DueDays   *int                 `json:"dueDays" validate:"omitempty,min=0,max=365"`
	Currency  string               `json:"currency" validate:"omitempty,len=3,alpha"`
	Notes     string               `json:"notes" validate:"max=2000"`
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent paid overdue cancelled"`
}

type InvoiceItemResponse struct {
	Description    string `json:"description"`
	Quantity       string `json:"quantity"`
	UnitPrice      string `json:"unitPrice"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Total          string `json:"total"`
	TotalCents     int64  `json:"totalCents"`
}

type InvoiceResponse struct {
	ID            int64                 `json:"id"`
	InvoiceNumber string                `json:"invoiceNumber"`
	UserID        uuid.UUID             `json:"userId"`
	ProjectID     *uuid.UUID            `json:"projectId,omitempty"`
	Items         []InvoiceItemResponse `json:"items"`
	Subtotal      string                `json:"subtotal"`
	TaxRate       string                `json:"taxRate"`
	Tax           string                `json:"tax"`
	Total         string                `json:"total"`
	TotalCents    int64                 `json:"totalCents"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	DueDate       time.Time             `json:"dueDate"`
	PaidAt        *time.Time            `json:"paidAt,omitempty"`
	PaymentID     *int64                `json:"paymentId,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

type InvoiceListResponse struct {
	Invoices   []InvoiceResponse `json:"invoices"`
	Pagination *PaginationMeta   `json:"pagination,omitempty"`
	Stats      *InvoiceStats     `json:"stats,omitempty"`
}

type InvoiceStats struct {
	TotalPaid      string `json:"totalPaid"`
	TotalPaidCents int64  `json:"totalPaidCents"`
	PaidCount      int64  `json:"paidCount"`
}

// InvoiceListQuery holds the filters of the invoice list endpoints.
type InvoiceListQuery struct {
	PaginationParams
	Status    string     `query:"status" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	UserID    *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

func amount(m money.Minor, currency string) string {
	return money.FromMinor(m, currency).StringFixed(money.Exponent(currency))
}

// ToInvoiceResponse renders inv as of now, so sent invoices past due read as overdue.
func ToInvoiceResponse(inv model.Invoice, now time.Time) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		UserID:        inv.UserID,
		ProjectID:     inv.ProjectID,
		Items: lo.Map(inv.Items, func(item model.InvoiceItem, _ int) InvoiceItemResponse {
			return InvoiceItemResponse{
				Description:    item.Description,
				Quantity:       item.Quantity.String(),
				UnitPrice:      amount(item.UnitPriceCents, inv.Currency),
				UnitPriceCents: int64(item.UnitPriceCents),
				Total:          amount(item.TotalCents, inv.Currency),
				TotalCents:     int64(item.TotalCents),
			}
		}),
		Subtotal:   amount(inv.SubtotalCents, inv.Currency),
		TaxRate:    inv.TaxRate.String(),
		Tax:        amount(inv.TaxCents, inv.Currency),
		Total:      amount(inv.TotalCents, inv.Currency),
		TotalCents: int64(inv.TotalCents),
		Currency:   inv.Currency,
		Status:     string(inv.EffectiveStatus(now)),
		DueDate:    inv.DueDate,
		PaidAt:     inv.PaidAt,
		PaymentID:  inv.PaymentID,
		Notes:      inv.Notes,
		CreatedAt:  inv.CreatedAt,
	}
}

func ToInvoiceResponses(invoices []model.Invoice, now time.Time) []InvoiceResponse {
	return lo.Map(invoices, func(inv model.Invoice, _ int) InvoiceResponse {
		return ToInvoiceResponse(inv, now)
	})
}

func ToInvoiceSummary(inv *model.Invoice) *InvoiceSummary {
	if inv == nil {
		return nil
	}
	return &InvoiceSummary{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         amount(inv.TotalCents, inv.Currency),
		TotalCents:    int64(inv.TotalCents),
	}
}

func ToInvoiceStats(stats *model.InvoiceStats, currency string) *InvoiceStats {
	if stats == nil {
		return nil
	}
	return &InvoiceStats{
		TotalPaid:      amount(stats.TotalPaid, currency),
		TotalPaidCents: int64(stats.TotalPaid),
		PaidCount:      stats.PaidCount,
	}
}
