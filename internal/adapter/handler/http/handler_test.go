package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	"github.com/wekeepgrowing/portal-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/portal-billing/internal/usecase"
)

// MockPaymentService is a mock implementation of PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, userID uuid.UUID, req dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CreatePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, userID uuid.UUID, id int64) (*dto.PaymentStatusResponse, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaymentStatusResponse), args.Error(1)
}

func (m *MockPaymentService) GetPaymentStatus(ctx context.Context, userID uuid.UUID, isAdmin bool, intentID string) (*usecase.PaymentStatus, error) {
	args := m.Called(ctx, userID, isAdmin, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PaymentStatus), args.Error(1)
}

func (m *MockPaymentService) ListUserPayments(ctx context.Context, userID uuid.UUID, status model.PaymentStatus, limit int) (*dto.PaymentListResponse, error) {
	args := m.Called(ctx, userID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaymentListResponse), args.Error(1)
}

func (m *MockPaymentService) ListAllPayments(ctx context.Context, q dto.PaymentListQuery) (*dto.PaymentListResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaymentListResponse), args.Error(1)
}

// MockInvoiceService is a mock implementation of InvoiceService
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, userID uuid.UUID, isAdmin bool, id int64) (*dto.InvoiceResponse, error) {
	args := m.Called(ctx, userID, isAdmin, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) ListUserInvoices(ctx context.Context, userID uuid.UUID, status model.InvoiceStatus) (*dto.InvoiceListResponse, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.InvoiceListResponse), args.Error(1)
}

func (m *MockInvoiceService) ListAllInvoices(ctx context.Context, q dto.InvoiceListQuery) (*dto.InvoiceListResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.InvoiceListResponse), args.Error(1)
}

func (m *MockInvoiceService) UpdateStatus(ctx context.Context, id int64, to model.InvoiceStatus) (*dto.InvoiceResponse, error) {
	args := m.Called(ctx, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, userID string, query dto.NotificationListQuery) (*dto.NotificationListResponse, error) {
	args := m.Called(ctx, userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.NotificationListResponse), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, id string) (*dto.NotificationResponse, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.NotificationResponse), args.Error(1)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockNotificationService) Stream(ctx context.Context, userID string) (<-chan model.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan model.Notification), args.Error(1)
}

// MockVerifier is a mock implementation of EventVerifier
type MockVerifier struct {
	mock.Mock
	disabled bool
}

func (m *MockVerifier) Enabled() bool { return !m.disabled }

func (m *MockVerifier) ConstructEvent(payload []byte, signature string) (*provider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

// MockProcessor is a mock implementation of WebhookProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) HandleWebhookEvent(ctx context.Context, event *provider.Event) error {
	return m.Called(ctx, event).Error(0)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zap.NewNop())
	return e
}

type request struct {
	method string
	target string
	body   string
	user   *auth.AuthUser
	header map[string]string
	params map[string]string
}

// do runs handler against req the way the router would, including error rendering.
func do(e *echo.Echo, req request, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}
	r := httptest.NewRequest(req.method, req.target, body)
	if req.body != "" {
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	if req.user != nil {
		r = r.WithContext(auth.WithUser(r.Context(), req.user))
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(r, rec)
	if len(req.params) > 0 {
		names := make([]string, 0, len(req.params))
		values := make([]string, 0, len(req.params))
		for name, value := range req.params {
			names = append(names, name)
			values = append(values, value)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func clientUser() *auth.AuthUser {
	return &auth.AuthUser{UserID: uuid.New(), Email: "client@example.com", Role: "client"}
}

func adminUser() *auth.AuthUser {
	return &auth.AuthUser{UserID: uuid.New(), Email: "admin@example.com", Role: auth.RoleAdmin}
}
