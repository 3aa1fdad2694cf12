package http

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

func TestCreateInvoice(t *testing.T) {
	e := newTestEcho()
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, zap.NewNop())
	userID := uuid.New()

	svc.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(req dto.CreateInvoiceRequest) bool {
		return req.UserID == userID && len(req.Items) == 2 && req.DueDays != nil && *req.DueDays == 15
	})).Return(&dto.InvoiceResponse{ID: 1, InvoiceNumber: "INV-2025-00001", Status: "draft"}, nil).Once()

	rec := do(e, request{
		method: http.MethodPost,
		target: "/api/v1/invoices",
		body: `{"userId": "` + userID.String() + `", "dueDays": 15, "items": [
			{"description": "Design", "quantity": 2, "unitPrice": 10},
			{"description": "Hosting", "quantity": 1, "unitPrice": "19.99"}
		]}`,
		user: adminUser(),
	}, h.CreateInvoice)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "INV-2025-00001")
	svc.AssertExpectations(t)

	rec = do(e, request{method: http.MethodPost, target: "/api/v1/invoices", body: `{"userId": "` + userID.String() + `", "items": []}`, user: adminUser()}, h.CreateInvoice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInvoice(t *testing.T) {
	e := newTestEcho()
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, zap.NewNop())
	client := clientUser()
	admin := adminUser()

	svc.On("GetInvoice", mock.Anything, client.UserID, false, int64(4)).Return(nil, domainErrors.ErrInvoiceNotFound).Once()
	svc.On("GetInvoice", mock.Anything, admin.UserID, true, int64(4)).Return(&dto.InvoiceResponse{ID: 4}, nil).Once()

	rec := do(e, request{method: http.MethodGet, target: "/api/v1/invoices/4", user: client, params: map[string]string{"id": "4"}}, h.GetInvoice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, request{method: http.MethodGet, target: "/api/v1/invoices/4", user: admin, params: map[string]string{"id": "4"}}, h.GetInvoice)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetUserInvoices(t *testing.T) {
	e := newTestEcho()
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, zap.NewNop())
	user := clientUser()

	svc.On("ListUserInvoices", mock.Anything, user.UserID, model.InvoiceStatusPaid).
		Return(&dto.InvoiceListResponse{Invoices: []dto.InvoiceResponse{}}, nil).Once()

	rec := do(e, request{method: http.MethodGet, target: "/api/v1/invoices?status=paid", user: user}, h.GetUserInvoices)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, request{method: http.MethodGet, target: "/api/v1/invoices?status=archived", user: user}, h.GetUserInvoices)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	e := newTestEcho()
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, zap.NewNop())

	svc.On("UpdateStatus", mock.Anything, int64(9), model.InvoiceStatusSent).
		Return(&dto.InvoiceResponse{ID: 9, Status: "sent"}, nil).Once()
	svc.On("UpdateStatus", mock.Anything, int64(9), model.InvoiceStatusDraft).
		Return(nil, &domainErrors.TransitionError{Entity: "invoice", From: "sent", To: "draft"}).Once()

	params := map[string]string{"id": "9"}
	rec := do(e, request{method: http.MethodPut, target: "/api/v1/invoices/9/status", body: `{"status": "sent"}`, user: adminUser(), params: params}, h.UpdateInvoiceStatus)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, request{method: http.MethodPut, target: "/api/v1/invoices/9/status", body: `{"status": "draft"}`, user: adminUser(), params: params}, h.UpdateInvoiceStatus)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot move from sent to draft")

	rec = do(e, request{method: http.MethodPut, target: "/api/v1/invoices/9/status", body: `{"status": "archived"}`, user: adminUser(), params: params}, h.UpdateInvoiceStatus)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetAllInvoices(t *testing.T) {
	e := newTestEcho()
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, zap.NewNop())

	svc.On("ListAllInvoices", mock.Anything, mock.MatchedBy(func(q dto.InvoiceListQuery) bool {
		return q.Status == "overdue" && q.Limit == 50 && q.UserID == nil
	})).Return(&dto.InvoiceListResponse{}, nil).Once()

	rec := do(e, request{method: http.MethodGet, target: "/api/v1/invoices/admin/all?status=overdue&limit=50", user: adminUser()}, h.GetAllInvoices)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteInvoice(t *testing.T) {
	e := newTestEcho()
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, zap.NewNop())

	svc.On("Delete", mock.Anything, int64(1)).Return(nil).Once()
	svc.On("Delete", mock.Anything, int64(2)).
		Return(&domainErrors.TransitionError{Entity: "invoice", From: "paid", To: "deleted"}).Once()

	rec := do(e, request{method: http.MethodDelete, target: "/api/v1/invoices/1", user: adminUser(), params: map[string]string{"id": "1"}}, h.DeleteInvoice)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, request{method: http.MethodDelete, target: "/api/v1/invoices/2", user: adminUser(), params: map[string]string{"id": "2"}}, h.DeleteInvoice)
	assert.Equal(t, http.StatusConflict, rec.Code)
	svc.AssertExpectations(t)
}
