package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/portal-billing/internal/usecase"
)

const dateLayout = "2006-01-02"

// PaymentService is the part of usecase.PaymentService the handlers use.
type PaymentService interface {
	CreatePayment(ctx context.Context, userID uuid.UUID, req dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	GetPayment(ctx context.Context, userID uuid.UUID, id int64) (*dto.PaymentStatusResponse, error)
	GetPaymentStatus(ctx context.Context, userID uuid.UUID, isAdmin bool, intentID string) (*usecase.PaymentStatus, error)
	ListUserPayments(ctx context.Context, userID uuid.UUID, status model.PaymentStatus, limit int) (*dto.PaymentListResponse, error)
	ListAllPayments(ctx context.Context, q dto.PaymentListQuery) (*dto.PaymentListResponse, error)
}

type PaymentHandler struct {
	service PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(service PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req dto.CreatePaymentRequest
	req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(h.logger, err, "Invalid payment request", zap.String("user_id", user.UserID.String()))
	}

	resp, err := h.service.CreatePayment(c.Request().Context(), user.UserID, req)
	if err != nil {
		return respondError(h.logger, err, "Failed to create payment",
			zap.String("user_id", user.UserID.String()),
			zap.String("amount", req.Amount.String()))
	}

	h.logger.Info("Payment created",
		zap.String("user_id", user.UserID.String()),
		zap.Int64("payment_id", resp.PaymentID),
		zap.String("invoice_number", resp.InvoiceNumber))

	return c.JSON(http.StatusCreated, resp)
}

// GetUserPayments handles GET /api/v1/payments
func (h *PaymentHandler) GetUserPayments(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var (
		status string
		limit  int
	)
	if err := echo.QueryParamsBinder(c).String("status", &status).Int("limit", &limit).BindError(); err != nil {
		return respondError(h.logger, domainErrors.NewValidationError("query", "invalid limit"), "Invalid payment list query")
	}
	if status != "" && !model.PaymentStatus(status).Valid() {
		return respondError(h.logger, domainErrors.NewValidationError("status", "unknown payment status %q", status), "Invalid payment list query")
	}

	resp, err := h.service.ListUserPayments(c.Request().Context(), user.UserID, model.PaymentStatus(status), limit)
	if err != nil {
		return respondError(h.logger, err, "Failed to list payments", zap.String("user_id", user.UserID.String()))
	}

	return c.JSON(http.StatusOK, resp)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return respondError(h.logger, domainErrors.NewValidationError("id", "must be a number"), "Invalid payment id")
	}

	resp, err := h.service.GetPayment(c.Request().Context(), user.UserID, id)
	if err != nil {
		return respondError(h.logger, err, "Failed to get payment",
			zap.String("user_id", user.UserID.String()),
			zap.Int64("payment_id", id))
	}

	return c.JSON(http.StatusOK, resp)
}

// GetPaymentStatus handles GET /api/v1/payments/status/:intentId. The caller
// must own the payment unless they are an admin.
func (h *PaymentHandler) GetPaymentStatus(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	intentID := c.Param("intentId")
	status, err := h.service.GetPaymentStatus(c.Request().Context(), user.UserID, user.IsAdmin(), intentID)
	if err != nil {
		return respondError(h.logger, err, "Failed to get payment status",
			zap.String("intent_id", intentID),
			zap.String("user_id", user.UserID.String()))
	}

	return c.JSON(http.StatusOK, dto.PaymentStatusResponse{
		GatewayStatus: status.GatewayStatus,
		Payment:       dto.ToPaymentResponse(*status.Payment),
	})
}

// GetAllPayments handles GET /api/v1/payments/admin/all
func (h *PaymentHandler) GetAllPayments(c echo.Context) error {
	var q dto.PaymentListQuery
	var err error
	q.UserID, q.StartDate, q.EndDate, err = bindListFilters(c, &q.PaginationParams, &q.Status)
	if err != nil {
		return respondError(h.logger, err, "Invalid payment list query")
	}
	if err := c.Validate(&q); err != nil {
		return respondError(h.logger, err, "Invalid payment list query")
	}

	resp, err := h.service.ListAllPayments(c.Request().Context(), q)
	if err != nil {
		return respondError(h.logger, err, "Failed to list all payments")
	}

	return c.JSON(http.StatusOK, resp)
}

// bindListFilters reads the admin listing query: page, limit, status, userId,
// startDate and endDate (YYYY-MM-DD, endDate inclusive).
func bindListFilters(c echo.Context, page *dto.PaginationParams, status *string) (*uuid.UUID, *time.Time, *time.Time, error) {
	var (
		userID     *uuid.UUID
		start, end *time.Time
	)

	err := echo.QueryParamsBinder(c).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		String("status", status).
		CustomFunc("userId", func(values []string) []error {
			id, err := uuid.Parse(values[0])
			if err != nil {
				return []error{err}
			}
			userID = &id
			return nil
		}).
		CustomFunc("startDate", func(values []string) []error {
			t, err := time.Parse(dateLayout, values[0])
			if err != nil {
				return []error{err}
			}
			start = &t
			return nil
		}).
		CustomFunc("endDate", func(values []string) []error {
			t, err := time.Parse(dateLayout, values[0])
			if err != nil {
				return []error{err}
			}
			t = t.Add(24*time.Hour - time.Nanosecond)
			end = &t
			return nil
		}).
		BindError()
	if err != nil {
		return nil, nil, nil, domainErrors.NewValidationError("query", "%v", err)
	}
	return userID, start, end, nil
}
