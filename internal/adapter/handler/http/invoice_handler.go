package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/middleware/auth"
)

// InvoiceService is the part of usecase.InvoiceService the handlers use.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, userID uuid.UUID, isAdmin bool, id int64) (*dto.InvoiceResponse, error)
	ListUserInvoices(ctx context.Context, userID uuid.UUID, status model.InvoiceStatus) (*dto.InvoiceListResponse, error)
	ListAllInvoices(ctx context.Context, q dto.InvoiceListQuery) (*dto.InvoiceListResponse, error)
	UpdateStatus(ctx context.Context, id int64, to model.InvoiceStatus) (*dto.InvoiceResponse, error)
	Delete(ctx context.Context, id int64) error
}

type InvoiceHandler struct {
	service InvoiceService
	logger  *zap.Logger
}

func NewInvoiceHandler(service InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
		logger:  logger,
	}
}

func invoiceID(c echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return 0, domainErrors.NewValidationError("id", "must be a number")
	}
	return id, nil
}

// GetUserInvoices handles GET /api/v1/invoices
func (h *InvoiceHandler) GetUserInvoices(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	status := model.InvoiceStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return respondError(h.logger, domainErrors.NewValidationError("status", "unknown invoice status %q", status), "Invalid invoice list query")
	}

	resp, err := h.service.ListUserInvoices(c.Request().Context(), user.UserID, status)
	if err != nil {
		return respondError(h.logger, err, "Failed to list invoices", zap.String("user_id", user.UserID.String()))
	}

	return c.JSON(http.StatusOK, resp)
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := invoiceID(c)
	if err != nil {
		return respondError(h.logger, err, "Invalid invoice id")
	}

	resp, err := h.service.GetInvoice(c.Request().Context(), user.UserID, user.IsAdmin(), id)
	if err != nil {
		return respondError(h.logger, err, "Failed to get invoice",
			zap.String("user_id", user.UserID.String()),
			zap.Int64("invoice_id", id))
	}

	return c.JSON(http.StatusOK, resp)
}

// CreateInvoice handles POST /api/v1/invoices (admin)
func (h *InvoiceHandler) CreateInvoice(c echo.Context) error {
	var req dto.CreateInvoiceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(h.logger, err, "Invalid invoice request")
	}

	resp, err := h.service.CreateInvoice(c.Request().Context(), req)
	if err != nil {
		return respondError(h.logger, err, "Failed to create invoice", zap.String("user_id", req.UserID.String()))
	}

	return c.JSON(http.StatusCreated, resp)
}

// UpdateInvoiceStatus handles PUT /api/v1/invoices/:id/status (admin)
func (h *InvoiceHandler) UpdateInvoiceStatus(c echo.Context) error {
	id, err := invoiceID(c)
	if err != nil {
		return respondError(h.logger, err, "Invalid invoice id")
	}

	var req dto.UpdateInvoiceStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(h.logger, err, "Invalid invoice status request")
	}

	resp, err := h.service.UpdateStatus(c.Request().Context(), id, model.InvoiceStatus(req.Status))
	if err != nil {
		return respondError(h.logger, err, "Failed to update invoice status",
			zap.Int64("invoice_id", id),
			zap.String("status", req.Status))
	}

	return c.JSON(http.StatusOK, resp)
}

// GetAllInvoices handles GET /api/v1/invoices/admin/all
func (h *InvoiceHandler) GetAllInvoices(c echo.Context) error {
	var q dto.InvoiceListQuery
	var err error
	q.UserID, q.StartDate, q.EndDate, err = bindListFilters(c, &q.PaginationParams, &q.Status)
	if err != nil {
		return respondError(h.logger, err, "Invalid invoice list query")
	}
	if err := c.Validate(&q); err != nil {
		return respondError(h.logger, err, "Invalid invoice list query")
	}

	resp, err := h.service.ListAllInvoices(c.Request().Context(), q)
	if err != nil {
		return respondError(h.logger, err, "Failed to list all invoices")
	}

	return c.JSON(http.StatusOK, resp)
}

// DeleteInvoice handles DELETE /api/v1/invoices/:id (admin)
func (h *InvoiceHandler) DeleteInvoice(c echo.Context) error {
	id, err := invoiceID(c)
	if err != nil {
		return respondError(h.logger, err, "Invalid invoice id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return respondError(h.logger, err, "Failed to delete invoice", zap.Int64("invoice_id", id))
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Invoice deleted"})
}
