package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/wekeepgrowing/portal-billing/internal/config"
	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

const (
	cancelIntentTimeout = 10 * time.Second

	idempotencyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idempotencyKeyLen   = 24
)

// CreatePaymentIntentInput describes a charge. Amount is in currency units
// and must convert exactly to minor units.
type CreatePaymentIntentInput struct {
	UserID         uuid.UUID
	ProjectID      *uuid.UUID
	InvoiceID      *int64
	Amount         decimal.Decimal
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type CreatePaymentIntentResult struct {
	IntentID      string
	ClientSecret  string
	Payment       *model.Payment
	InvoiceNumber string
}

// PaymentStatus is the gateway's status next to the local record. GatewayStatus
// is empty when the gateway could not be asked.
type PaymentStatus struct {
	GatewayStatus string
	Payment       *model.Payment
}

type PaymentService struct {
	tx         repository.Transactor
	payments   repository.PaymentRepository
	invoices   repository.InvoiceRepository
	sequences  repository.SequenceRepository
	gateway    provider.PaymentGateway
	reconciler *ReconciliationService
	invoicing  *InvoiceService
	billing    config.BillingConfig
	logger     *zap.Logger

	statusGroup singleflight.Group
}

func NewPaymentService(
	tx repository.Transactor,
	payments repository.PaymentRepository,
	invoices repository.InvoiceRepository,
	sequences repository.SequenceRepository,
	gateway provider.PaymentGateway,
	reconciler *ReconciliationService,
	invoicing *InvoiceService,
	billing config.BillingConfig,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		tx:         tx,
		payments:   payments,
		invoices:   invoices,
		sequences:  sequences,
		gateway:    gateway,
		reconciler: reconciler,
		invoicing:  invoicing,
		billing:    billing,
		logger:     logger,
	}
}

// Enabled reports whether payments can be taken.
func (s *PaymentService) Enabled() bool {
	return s.gateway.Enabled()
}

// CreatePaymentIntent opens a gateway intent and stores the matching pending
// payment. When the gateway call fails nothing is stored; when the local
// write fails the remote intent is cancelled. A retried idempotency key gets
// the already stored payment back.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, in CreatePaymentIntentInput) (*CreatePaymentIntentResult, error) {
	if in.UserID == uuid.Nil {
		return nil, domainErrors.NewValidationError("user", "is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, domainErrors.NewValidationError("description", "is required")
	}
	if in.Currency == "" {
		in.Currency = s.billing.DefaultCurrency
	}
	currency, err := money.NormalizeCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := money.ToMinor(in.Amount, currency)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domainErrors.NewValidationError("amount", "must be greater than zero")
	}

	metadata := map[string]string{"userId": in.UserID.String()}
	if in.ProjectID != nil {
		metadata["projectId"] = in.ProjectID.String()
	}
	if in.InvoiceID != nil {
		metadata["invoiceId"] = strconv.FormatInt(*in.InvoiceID, 10)
	}
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	intent, err := s.gateway.CreateIntent(ctx, provider.CreateIntentRequest{
		Amount:         amount,
		Currency:       currency,
		Description:    in.Description,
		Metadata:       metadata,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		var cfgErr *domainErrors.ConfigurationError
		var gwErr *domainErrors.GatewayError
		if errors.As(err, &cfgErr) || errors.As(err, &gwErr) {
			return nil, err
		}
		return nil, domainErrors.NewGatewayError(s.gateway.Name(), "create intent", err)
	}

	intentID := intent.ID
	if existing, err := s.payments.GetByIntentID(ctx, intentID); err == nil {
		return replayedIntent(intent, existing, in.UserID, amount, currency)
	} else if !errors.Is(err, domainErrors.ErrPaymentNotFound) {
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}

	payment := &model.Payment{
		UserID:          in.UserID,
		ProjectID:       in.ProjectID,
		InvoiceID:       in.InvoiceID,
		AmountCents:     amount,
		Currency:        currency,
		Status:          model.PaymentStatusPending,
		Method:          model.PaymentMethodStripe,
		GatewayIntentID: &intentID,
		Description:     in.Description,
		Metadata: datatypes.JSONMap(lo.MapValues(metadata, func(v string, _ string) interface{} {
			return v
		})),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		year := time.Now().In(s.billing.Location()).Year()
		n, err := s.sequences.Next(ctx, model.SequenceScopePayment, year)
		if err != nil {
			return err
		}
		payment.InvoiceNumber = model.FormatInvoiceNumber(year, n)

		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}
		if in.InvoiceID != nil {
			return s.invoices.AttachPayment(ctx, *in.InvoiceID, payment.ID)
		}
		return nil
	})
	if err != nil {
		// A concurrent retry with the same key may have stored it first.
		if existing, lookupErr := s.payments.GetByIntentID(ctx, intentID); lookupErr == nil {
			return replayedIntent(intent, existing, in.UserID, amount, currency)
		}

		s.logger.Error("Failed to store payment, cancelling intent",
			zap.String("intent_id", intentID),
			zap.Error(err))
		s.cancelIntent(ctx, intentID)
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}

	s.logger.Info("Payment intent created",
		zap.Int64("payment_id", payment.ID),
		zap.String("intent_id", intentID),
		zap.String("invoice_number", payment.InvoiceNumber),
		zap.Int64("amount_cents", int64(amount)))

	return &CreatePaymentIntentResult{
		IntentID:      intentID,
		ClientSecret:  intent.ClientSecret,
		Payment:       payment,
		InvoiceNumber: payment.InvoiceNumber,
	}, nil
}

// replayedIntent answers a request whose intent is already stored. The intent
// is never cancelled here since its payment is live.
func replayedIntent(intent *provider.Intent, existing *model.Payment, userID uuid.UUID, amount money.Minor, currency string) (*CreatePaymentIntentResult, error) {
	if existing.UserID != userID || existing.AmountCents != amount || existing.Currency != currency {
		return nil, domainErrors.ErrIdempotencyConflict
	}

	return &CreatePaymentIntentResult{
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		Payment:       existing,
		InvoiceNumber: existing.InvoiceNumber,
	}, nil
}

// newIdempotencyKey is used when the client did not send an Idempotency-Key.
func newIdempotencyKey() (string, error) {
	id, err := gonanoid.Generate(idempotencyAlphabet, idempotencyKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate idempotency key: %w", err)
	}
	return "pay_" + id, nil
}

func (s *PaymentService) cancelIntent(ctx context.Context, intentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelIntentTimeout)
	defer cancel()

	if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
		s.logger.Error("Failed to cancel orphaned payment intent",
			zap.String("intent_id", intentID),
			zap.Error(err))
	}
}

// CreatePayment serves POST /payments. With line items a draft invoice is
// created first and its total is charged; the draft is cancelled again if
// the intent cannot be created.
func (s *PaymentService) CreatePayment(ctx context.Context, userID uuid.UUID, req dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	if !s.gateway.Enabled() {
		return nil, domainErrors.NewConfigurationError("payment gateway", "payments are disabled")
	}

	key := req.IdempotencyKey
	if key == "" {
		var err error
		if key, err = newIdempotencyKey(); err != nil {
			return nil, err
		}
	}

	in := CreatePaymentIntentInput{
		UserID:         userID,
		ProjectID:      req.ProjectID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: key,
	}

	var invoice *model.Invoice
	if len(req.Items) > 0 {
		var err error
		invoice, err = s.invoicing.CreateDraftForPayment(ctx, DraftInvoiceInput{
			UserID:    userID,
			ProjectID: req.ProjectID,
			Items:     req.Items,
			Currency:  req.Currency,
			Notes:     req.Description,
		})
		if err != nil {
			return nil, err
		}

		in.InvoiceID = &invoice.ID
		in.Amount = money.FromMinor(invoice.TotalCents, invoice.Currency)
		in.Currency = invoice.Currency
		in.Description = fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
		// Each attempt bills a fresh draft, so the key is scoped to it.
		in.IdempotencyKey = key + ":" + invoice.InvoiceNumber
	}

	result, err := s.CreatePaymentIntent(ctx, in)
	if err != nil {
		if invoice != nil {
			if cancelErr := s.invoicing.CancelDraft(ctx, invoice.ID); cancelErr != nil {
				s.logger.Error("Failed to cancel draft invoice",
					zap.Int64("invoice_id", invoice.ID),
					zap.Error(cancelErr))
			}
		}
		return nil, err
	}

	return &dto.CreatePaymentResponse{
		ClientSecret:  result.ClientSecret,
		PaymentID:     result.Payment.ID,
		InvoiceNumber: result.InvoiceNumber,
		Invoice:       dto.ToInvoiceSummary(invoice),
	}, nil
}

// GetPaymentStatus asks the gateway for the intent's status and catches the
// local payment up when a webhook was missed. Concurrent calls for the same
// intent share one gateway request. Gateway failures never fail the read.
// Payments of other users are reported as not found unless isAdmin is set,
// and are never synced.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, userID uuid.UUID, isAdmin bool, intentID string) (*PaymentStatus, error) {
	payment, err := s.payments.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && payment.UserID != userID {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return s.syncShared(ctx, payment), nil
}

func (s *PaymentService) syncShared(ctx context.Context, payment *model.Payment) *PaymentStatus {
	if payment.GatewayIntentID == nil {
		return &PaymentStatus{Payment: payment}
	}

	v, _, _ := s.statusGroup.Do(*payment.GatewayIntentID, func() (interface{}, error) {
		synced, gatewayStatus := s.reconciler.SyncIntent(ctx, payment)
		return &PaymentStatus{GatewayStatus: gatewayStatus, Payment: synced}, nil
	})
	return v.(*PaymentStatus)
}

// GetPayment returns the user's payment, reconciling open payments first.
func (s *PaymentService) GetPayment(ctx context.Context, userID uuid.UUID, id int64) (*dto.PaymentStatusResponse, error) {
	payment, err := s.payments.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	status := &PaymentStatus{Payment: payment}
	if payment.Status == model.PaymentStatusPending || payment.Status == model.PaymentStatusProcessing {
		status = s.syncShared(ctx, payment)
	}

	return &dto.PaymentStatusResponse{
		GatewayStatus: status.GatewayStatus,
		Payment:       dto.ToPaymentResponse(*status.Payment),
	}, nil
}

func (s *PaymentService) ListUserPayments(ctx context.Context, userID uuid.UUID, status model.PaymentStatus, limit int) (*dto.PaymentListResponse, error) {
	if limit <= 0 || limit > dto.MaxPageSize {
		limit = dto.MaxPageSize
	}

	payments, _, err := s.payments.List(ctx, model.PaymentFilter{
		UserID: &userID,
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PaymentListResponse{Payments: dto.ToPaymentResponses(payments)}, nil
}

// ListAllPayments is the admin listing with succeeded revenue totals.
func (s *PaymentService) ListAllPayments(ctx context.Context, q dto.PaymentListQuery) (*dto.PaymentListResponse, error) {
	q.Normalize()

	payments, total, err := s.payments.List(ctx, model.PaymentFilter{
		UserID:    q.UserID,
		Status:    model.PaymentStatus(q.Status),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     q.Limit,
		Offset:    q.Offset(),
	})
	if err != nil {
		return nil, err
	}

	stats, err := s.payments.RevenueStats(ctx)
	if err != nil {
		return nil, err
	}

	meta := dto.NewPaginationMeta(q.PaginationParams, total)
	return &dto.PaymentListResponse{
		Payments:   dto.ToPaymentResponses(payments),
		Pagination: &meta,
		Stats:      dto.ToRevenueStats(stats, s.billing.DefaultCurrency),
	}, nil
}
