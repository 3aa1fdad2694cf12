package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	"github.com/wekeepgrowing/portal-billing/internal/infrastructure/database"
	"github.com/wekeepgrowing/portal-billing/internal/usecase"
)

// MockGateway is a mock implementation of provider.PaymentGateway
type MockGateway struct {
	mock.Mock
	disabled bool
}

func (m *MockGateway) Name() string  { return "stripe" }
func (m *MockGateway) Enabled() bool { return !m.disabled }

func (m *MockGateway) CreateIntent(ctx context.Context, req provider.CreateIntentRequest) (*provider.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Intent), args.Error(1)
}

func (m *MockGateway) RetrieveIntent(ctx context.Context, intentID string) (*provider.Intent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Intent), args.Error(1)
}

func (m *MockGateway) CancelIntent(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

func (m *MockGateway) ConstructEvent(payload []byte, signature string) (*provider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []int64
	failed    []int64
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, p *model.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, p.ID)
}

func (n *recordingNotifier) PaymentFailed(_ context.Context, p *model.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, p.ID)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed), len(n.failed)
}

var testBilling = config.BillingConfig{
	DefaultCurrency: "EUR",
	TaxRate:         "0.23",
	DueDays:         30,
	Timezone:        "Europe/Lisbon",
}

type fixture struct {
	db         *gorm.DB
	repos      *database.Repositories
	gateway    *MockGateway
	notifier   *recordingNotifier
	reconciler *usecase.ReconciliationService
	invoices   *usecase.InvoiceService
	payments   *usecase.PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.NewConnection(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   config.SQLiteMemory,
	}, "silent", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db, logger) })

	require.NoError(t, database.Migrate(db, logger))

	f := &fixture{
		db:       db,
		repos:    database.NewRepositories(db, logger),
		gateway:  new(MockGateway),
		notifier: &recordingNotifier{},
	}
	f.reconciler = usecase.NewReconciliationService(f.repos.Transactor, f.repos.Payment, f.repos.Invoice, f.repos.Webhook, f.gateway, f.notifier, logger)
	f.invoices = usecase.NewInvoiceService(f.repos.Transactor, f.repos.Invoice, f.repos.Payment, f.repos.Sequence, testBilling, logger)
	f.payments = usecase.NewPaymentService(f.repos.Transactor, f.repos.Payment, f.repos.Invoice, f.repos.Sequence, f.gateway, f.reconciler, f.invoices, testBilling, logger)
	return f
}

// seedPayment stores a pending gateway payment, optionally linked to a new draft invoice.
func (f *fixture) seedPayment(t *testing.T, intentID string, withInvoice bool) *model.Payment {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()

	p := &model.Payment{
		InvoiceNumber:   "INV-2025-" + intentID,
		UserID:          userID,
		AmountCents:     4918,
		Currency:        "EUR",
		Status:          model.PaymentStatusPending,
		Method:          model.PaymentMethodStripe,
		GatewayIntentID: &intentID,
		Description:     "Website redesign",
	}

	if withInvoice {
		inv := &model.Invoice{
			InvoiceNumber: "INV-2025-inv-" + intentID,
			UserID:        userID,
			Currency:      "EUR",
			Status:        model.InvoiceStatusSent,
		}
		require.NoError(t, f.repos.Invoice.Create(ctx, inv))
		p.InvoiceID = &inv.ID
	}

	require.NoError(t, f.repos.Payment.Create(ctx, p))
	if p.InvoiceID != nil {
		require.NoError(t, f.repos.Invoice.AttachPayment(ctx, *p.InvoiceID, p.ID))
	}
	return p
}

func (f *fixture) countPayments(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Payment{}).Count(&n).Error)
	return n
}
