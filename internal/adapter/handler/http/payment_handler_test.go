package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/usecase"
)

func TestCreatePayment(t *testing.T) {
	e := newTestEcho()
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc, zap.NewNop())
	user := clientUser()

	svc.On("CreatePayment", mock.Anything, user.UserID, mock.MatchedBy(func(req dto.CreatePaymentRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("49.18")) &&
			req.Description == "Website" &&
			req.IdempotencyKey == "order-42" &&
			len(req.Items) == 1
	})).Return(&dto.CreatePaymentResponse{
		ClientSecret:  "pi_1_secret",
		PaymentID:     7,
		InvoiceNumber: "INV-2025-00001",
	}, nil).Once()

	rec := do(e, request{
		method: http.MethodPost,
		target: "/api/v1/payments",
		body:   `{"amount": 49.18, "currency": "EUR", "description": "Website", "items": [{"description": "Design", "quantity": 2, "unitPrice": "19.99"}]}`,
		user:   user,
		header: map[string]string{"Idempotency-Key": "order-42"},
	}, h.CreatePayment)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1_secret", resp.ClientSecret)
	assert.Equal(t, int64(7), resp.PaymentID)
	svc.AssertExpectations(t)
}

func TestCreatePayment_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
	}{
		{"missing description", `{"amount": 10}`, nil, http.StatusBadRequest},
		{"malformed body", `{"amount": `, nil, http.StatusBadRequest},
		{"item without description", `{"amount": 10, "description": "x", "items": [{"quantity": 1, "unitPrice": 1}]}`, nil, http.StatusBadRequest},
		{"service validation", `{"amount": 0, "description": "x"}`, domainErrors.NewValidationError("amount", "must be greater than zero"), http.StatusBadRequest},
		{"gateway failure", `{"amount": 10, "description": "x"}`, domainErrors.NewGatewayError("stripe", "create intent", errors.New("boom")), http.StatusBadGateway},
		{"payments disabled", `{"amount": 10, "description": "x"}`, domainErrors.NewConfigurationError("payment gateway", "disabled"), http.StatusServiceUnavailable},
		{"unexpected", `{"amount": 10, "description": "x"}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			svc := new(MockPaymentService)
			h := NewPaymentHandler(svc, zap.NewNop())
			if tt.svcErr != nil {
				svc.On("CreatePayment", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.svcErr).Once()
			}

			rec := do(e, request{method: http.MethodPost, target: "/api/v1/payments", body: tt.body, user: clientUser()}, h.CreatePayment)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
			if tt.svcErr == nil {
				svc.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCreatePayment_Unauthenticated(t *testing.T) {
	e := newTestEcho()
	h := NewPaymentHandler(new(MockPaymentService), zap.NewNop())

	rec := do(e, request{method: http.MethodPost, target: "/api/v1/payments", body: `{}`}, h.CreatePayment)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserPayments(t *testing.T) {
	e := newTestEcho()
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc, zap.NewNop())
	user := clientUser()

	svc.On("ListUserPayments", mock.Anything, user.UserID, model.PaymentStatusSucceeded, 5).
		Return(&dto.PaymentListResponse{Payments: []dto.PaymentResponse{{ID: 1}}}, nil).Once()

	rec := do(e, request{method: http.MethodGet, target: "/api/v1/payments?status=succeeded&limit=5", user: user}, h.GetUserPayments)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)

	rec = do(e, request{method: http.MethodGet, target: "/api/v1/payments?status=lost", user: user}, h.GetUserPayments)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, request{method: http.MethodGet, target: "/api/v1/payments?limit=ten", user: user}, h.GetUserPayments)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPayment(t *testing.T) {
	e := newTestEcho()
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc, zap.NewNop())
	user := clientUser()

	svc.On("GetPayment", mock.Anything, user.UserID, int64(7)).
		Return(&dto.PaymentStatusResponse{GatewayStatus: "succeeded", Payment: dto.PaymentResponse{ID: 7, Status: "succeeded"}}, nil).Once()
	svc.On("GetPayment", mock.Anything, user.UserID, int64(8)).
		Return(nil, domainErrors.ErrPaymentNotFound).Once()

	rec := do(e, request{method: http.MethodGet, target: "/api/v1/payments/7", user: user, params: map[string]string{"id": "7"}}, h.GetPayment)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gatewayStatus":"succeeded"`)

	rec = do(e, request{method: http.MethodGet, target: "/api/v1/payments/8", user: user, params: map[string]string{"id": "8"}}, h.GetPayment)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, request{method: http.MethodGet, target: "/api/v1/payments/abc", user: user, params: map[string]string{"id": "abc"}}, h.GetPayment)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPaymentStatus(t *testing.T) {
	owner := clientUser()
	intentID := "pi_123"
	status := &usecase.PaymentStatus{
		GatewayStatus: "processing",
		Payment:       &model.Payment{ID: 3, UserID: owner.UserID, Status: model.PaymentStatusProcessing, Currency: "EUR", GatewayIntentID: &intentID},
	}

	admin := adminUser()
	stranger := clientUser()

	e := newTestEcho()
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc, zap.NewNop())
	svc.On("GetPaymentStatus", mock.Anything, owner.UserID, false, intentID).Return(status, nil).Once()
	svc.On("GetPaymentStatus", mock.Anything, admin.UserID, true, intentID).Return(status, nil).Once()
	svc.On("GetPaymentStatus", mock.Anything, stranger.UserID, false, intentID).Return(nil, domainErrors.ErrPaymentNotFound).Once()

	req := request{method: http.MethodGet, target: "/api/v1/payments/status/pi_123", params: map[string]string{"intentId": intentID}}

	req.user = owner
	rec := do(e, req, h.GetPaymentStatus)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gatewayStatus":"processing"`)

	req.user = admin
	rec = do(e, req, h.GetPaymentStatus)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.user = stranger
	rec = do(e, req, h.GetPaymentStatus)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetAllPayments(t *testing.T) {
	e := newTestEcho()
	svc := new(MockPaymentService)
	h := NewPaymentHandler(svc, zap.NewNop())
	userID := uuid.New()

	svc.On("ListAllPayments", mock.Anything, mock.MatchedBy(func(q dto.PaymentListQuery) bool {
		return q.Page == 2 && q.Limit == 10 &&
			q.Status == "succeeded" &&
			q.UserID != nil && *q.UserID == userID &&
			q.StartDate != nil && q.StartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			q.EndDate != nil && q.EndDate.After(time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC))
	})).Return(&dto.PaymentListResponse{}, nil).Once()

	rec := do(e, request{
		method: http.MethodGet,
		target: "/api/v1/payments/admin/all?page=2&limit=10&status=succeeded&userId=" + userID.String() + "&startDate=2025-01-01&endDate=2025-01-31",
		user:   adminUser(),
	}, h.GetAllPayments)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)

	for _, target := range []string{
		"/api/v1/payments/admin/all?userId=nope",
		"/api/v1/payments/admin/all?startDate=01-01-2025",
		"/api/v1/payments/admin/all?status=lost",
	} {
		rec = do(e, request{method: http.MethodGet, target: target, user: adminUser()}, h.GetAllPayments)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}
