package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/config"
	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

// DraftInvoiceInput describes an invoice built from payment line items.
type DraftInvoiceInput struct {
	UserID    uuid.UUID
	ProjectID *uuid.UUID
	Items     []dto.InvoiceItemRequest
	Currency  string
	Notes     string
}

type InvoiceService struct {
	tx        repository.Transactor
	invoices  repository.InvoiceRepository
	payments  repository.PaymentRepository
	sequences repository.SequenceRepository
	billing   config.BillingConfig
	logger    *zap.Logger
}

func NewInvoiceService(
	tx repository.Transactor,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	sequences repository.SequenceRepository,
	billing config.BillingConfig,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		tx:        tx,
		invoices:  invoices,
		payments:  payments,
		sequences: sequences,
		billing:   billing,
		logger:    logger,
	}
}

// ComputeInvoice prices items given in currency units.
func (s *InvoiceService) ComputeInvoice(items []dto.InvoiceItemRequest, taxRate decimal.Decimal, currency string) (money.Totals, error) {
	lines, err := s.toLineItems(items, currency)
	if err != nil {
		return money.Totals{}, err
	}
	return money.ComputeInvoice(lines, taxRate)
}

func (s *InvoiceService) toLineItems(items []dto.InvoiceItemRequest, currency string) ([]money.LineItem, error) {
	lines := make([]money.LineItem, len(items))
	for i, item := range items {
		unit, err := money.ToMinor(item.UnitPrice, currency)
		if err != nil {
			return nil, domainErrors.NewValidationError("items", "item %d: %v", i+1, err)
		}
		lines[i] = money.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
		}
	}
	return lines, nil
}

// CreateInvoice is the admin entry point. Invoices start as drafts.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if req.UserID == uuid.Nil {
		return nil, domainErrors.NewValidationError("userId", "is required")
	}

	rate := s.billing.Rate()
	if req.TaxRate != nil {
		rate = *req.TaxRate
	}
	dueDays := s.billing.DueDays
	if req.DueDays != nil {
		dueDays = *req.DueDays
	}

	inv, err := s.create(ctx, req.UserID, req.ProjectID, req.Items, rate, dueDays, req.Currency, req.Notes)
	if err != nil {
		return nil, err
	}

	resp := dto.ToInvoiceResponse(*inv, time.Now())
	return &resp, nil
}

// CreateDraftForPayment builds the draft invoice that a payment request with
// line items is charged against.
func (s *InvoiceService) CreateDraftForPayment(ctx context.Context, in DraftInvoiceInput) (*model.Invoice, error) {
	inv, err := s.create(ctx, in.UserID, in.ProjectID, in.Items, s.billing.Rate(), s.billing.DueDays, in.Currency, in.Notes)
	if err != nil {
		return nil, err
	}
	if inv.TotalCents <= 0 {
		// Nothing to charge; drop the draft again.
		if _, cancelErr := s.invoices.UpdateStatus(ctx, inv.ID, []model.InvoiceStatus{model.InvoiceStatusDraft}, model.InvoiceStatusCancelled); cancelErr != nil {
			s.logger.Error("Failed to cancel empty draft invoice", zap.Int64("invoice_id", inv.ID), zap.Error(cancelErr))
		}
		return nil, domainErrors.NewValidationError("items", "invoice total must be greater than zero")
	}
	return inv, nil
}

func (s *InvoiceService) create(
	ctx context.Context,
	userID uuid.UUID,
	projectID *uuid.UUID,
	items []dto.InvoiceItemRequest,
	taxRate decimal.Decimal,
	dueDays int,
	currency string,
	notes string,
) (*model.Invoice, error) {
	if len(items) == 0 {
		return nil, domainErrors.NewValidationError("items", "at least one item is required")
	}
	if currency == "" {
		currency = s.billing.DefaultCurrency
	}
	currency, err := money.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if dueDays < 0 {
		return nil, domainErrors.NewValidationError("dueDays", "must not be negative")
	}

	lines, err := s.toLineItems(items, currency)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &model.Invoice{
		UserID:    userID,
		ProjectID: projectID,
		TaxRate:   taxRate,
		Currency:  currency,
		Status:    model.InvoiceStatusDraft,
		DueDate:   now.AddDate(0, 0, dueDays),
		Notes:     notes,
		Items:     make([]model.InvoiceItem, len(lines)),
	}
	for i, line := range lines {
		inv.Items[i] = model.InvoiceItem{
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPrice,
		}
	}
	if err := inv.Recompute(); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		year := now.In(s.billing.Location()).Year()
		n, err := s.sequences.Next(ctx, model.SequenceScopeInvoice, year)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = model.FormatInvoiceNumber(year, n)
		return s.invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		zap.Int64("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int64("total_cents", int64(inv.TotalCents)))
	return inv, nil
}

// GetInvoice returns the invoice to its owner or to an admin.
func (s *InvoiceService) GetInvoice(ctx context.Context, userID uuid.UUID, isAdmin bool, id int64) (*dto.InvoiceResponse, error) {
	var (
		inv *model.Invoice
		err error
	)
	if isAdmin {
		inv, err = s.invoices.GetByID(ctx, id)
	} else {
		inv, err = s.invoices.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}

	resp := dto.ToInvoiceResponse(*inv, time.Now())
	return &resp, nil
}

func (s *InvoiceService) ListUserInvoices(ctx context.Context, userID uuid.UUID, status model.InvoiceStatus) (*dto.InvoiceListResponse, error) {
	invoices, _, err := s.invoices.List(ctx, model.InvoiceFilter{
		UserID: &userID,
		Status: status,
		Limit:  dto.MaxPageSize,
	})
	if err != nil {
		return nil, err
	}

	return &dto.InvoiceListResponse{Invoices: dto.ToInvoiceResponses(invoices, time.Now())}, nil
}

// ListAllInvoices is the admin listing with paid totals.
func (s *InvoiceService) ListAllInvoices(ctx context.Context, q dto.InvoiceListQuery) (*dto.InvoiceListResponse, error) {
	q.Normalize()

	invoices, total, err := s.invoices.List(ctx, model.InvoiceFilter{
		UserID:    q.UserID,
		Status:    model.InvoiceStatus(q.Status),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     q.Limit,
		Offset:    q.Offset(),
	})
	if err != nil {
		return nil, err
	}

	stats, err := s.invoices.Stats(ctx)
	if err != nil {
		return nil, err
	}

	meta := dto.NewPaginationMeta(q.PaginationParams, total)
	return &dto.InvoiceListResponse{
		Invoices:   dto.ToInvoiceResponses(invoices, time.Now()),
		Pagination: &meta,
		Stats:      dto.ToInvoiceStats(stats, s.billing.DefaultCurrency),
	}, nil
}

// UpdateStatus applies an admin status change. Marking an invoice paid by
// hand records a succeeded bank transfer payment so every paid invoice has
// a succeeded payment behind it.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id int64, to model.InvoiceStatus) (*dto.InvoiceResponse, error) {
	if !to.Valid() {
		return nil, domainErrors.NewValidationError("status", "unknown invoice status %q", to)
	}

	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != to {
		if !inv.Status.CanTransitionTo(to) {
			return nil, &domainErrors.TransitionError{Entity: "invoice", From: string(inv.Status), To: string(to)}
		}

		if to == model.InvoiceStatusPaid {
			err = s.markPaidManually(ctx, inv)
		} else {
			err = s.transition(ctx, inv, to)
		}
		if err != nil {
			return nil, err
		}

		if inv, err = s.invoices.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	resp := dto.ToInvoiceResponse(*inv, time.Now())
	return &resp, nil
}

func (s *InvoiceService) transition(ctx context.Context, inv *model.Invoice, to model.InvoiceStatus) error {
	ok, err := s.invoices.UpdateStatus(ctx, inv.ID, []model.InvoiceStatus{inv.Status}, to)
	if err != nil {
		return err
	}
	if !ok {
		return &domainErrors.TransitionError{Entity: "invoice", From: string(inv.Status), To: string(to)}
	}

	s.logger.Info("Invoice status updated",
		zap.Int64("invoice_id", inv.ID),
		zap.String("from", string(inv.Status)),
		zap.String("to", string(to)))
	return nil
}

func (s *InvoiceService) markPaidManually(ctx context.Context, inv *model.Invoice) error {
	now := time.Now()

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		year := now.In(s.billing.Location()).Year()
		n, err := s.sequences.Next(ctx, model.SequenceScopePayment, year)
		if err != nil {
			return err
		}

		invoiceID := inv.ID
		payment := &model.Payment{
			InvoiceNumber: model.FormatInvoiceNumber(year, n),
			UserID:        inv.UserID,
			ProjectID:     inv.ProjectID,
			InvoiceID:     &invoiceID,
			AmountCents:   inv.TotalCents,
			Currency:      inv.Currency,
			Status:        model.PaymentStatusSucceeded,
			Method:        model.PaymentMethodBankTransfer,
			Description:   fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
			PaidAt:        &now,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}

		ok, err := s.invoices.MarkPaid(ctx, inv.ID, payment.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return &domainErrors.TransitionError{Entity: "invoice", From: string(model.InvoiceStatusPaid), To: string(model.InvoiceStatusPaid)}
		}

		s.logger.Info("Invoice marked paid manually",
			zap.Int64("invoice_id", inv.ID),
			zap.Int64("payment_id", payment.ID))
		return nil
	})
}

// CancelDraft cancels an invoice that is still a draft. It is a no-op for
// invoices in any other state.
func (s *InvoiceService) CancelDraft(ctx context.Context, id int64) error {
	_, err := s.invoices.UpdateStatus(ctx, id, []model.InvoiceStatus{model.InvoiceStatusDraft}, model.InvoiceStatusCancelled)
	return err
}

// Delete removes an unpaid invoice.
func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == model.InvoiceStatusPaid {
		return &domainErrors.TransitionError{Entity: "invoice", From: string(inv.Status), To: "deleted"}
	}

	if err := s.invoices.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Invoice deleted",
		zap.Int64("invoice_id", id),
		zap.String("invoice_number", inv.InvoiceNumber))
	return nil
}

// MarkOverdue persists the overdue status of sent invoices past their due date.
func (s *InvoiceService) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.invoices.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	s.logger.Info("Overdue sweep finished", zap.Int64("invoices", n))
	return n, nil
}
