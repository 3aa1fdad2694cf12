package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
	"github.com/wekeepgrowing/portal-billing/internal/usecase"
)

func invoiceRequest(userID uuid.UUID) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		UserID: userID,
		Items: []dto.InvoiceItemRequest{
			{Description: "Design", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("10.00")},
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("19.99")},
		},
		Notes: "Q1",
	}
}

func TestComputeInvoice(t *testing.T) {
	f := newFixture(t)

	totals, err := f.invoices.ComputeInvoice([]dto.InvoiceItemRequest{
		{Description: "Design", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("33.33")},
	}, decimal.RequireFromString("0.23"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, money.Minor(9999), totals.Subtotal)
	assert.Equal(t, money.Minor(2300), totals.Tax)
	assert.Equal(t, money.Minor(12299), totals.Total)

	_, err = f.invoices.ComputeInvoice([]dto.InvoiceItemRequest{
		{Description: "Bad", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1.001")},
	}, decimal.Zero, "EUR")
	var validationErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	resp, err := f.invoices.CreateInvoice(ctx, invoiceRequest(userID))
	require.NoError(t, err)

	assert.Equal(t, expectedNumber(1), resp.InvoiceNumber)
	assert.Equal(t, string(model.InvoiceStatusDraft), resp.Status)
	assert.Equal(t, "39.99", resp.Subtotal)
	assert.Equal(t, "9.20", resp.Tax)
	assert.Equal(t, "49.19", resp.Total)
	assert.Equal(t, int64(4919), resp.TotalCents)
	assert.Equal(t, "EUR", resp.Currency)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int64(2000), resp.Items[0].TotalCents)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), resp.DueDate, time.Minute)

	second, err := f.invoices.CreateInvoice(ctx, invoiceRequest(userID))
	require.NoError(t, err)
	assert.Equal(t, expectedNumber(2), second.InvoiceNumber)

	// Payments number independently of invoices.
	var seq model.Sequence
	require.Error(t, f.db.Where("scope = ?", model.SequenceScopePayment).First(&seq).Error)
}

func TestCreateInvoice_Overrides(t *testing.T) {
	f := newFixture(t)
	req := invoiceRequest(uuid.New())
	rate := decimal.Zero
	due := 7
	req.TaxRate = &rate
	req.DueDays = &due
	req.Currency = "usd"

	resp, err := f.invoices.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "0.00", resp.Tax)
	assert.Equal(t, int64(3999), resp.TotalCents)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), resp.DueDate, time.Minute)
}

func TestCreateInvoice_Validation(t *testing.T) {
	f := newFixture(t)
	var validationErr *domainErrors.ValidationError

	_, err := f.invoices.CreateInvoice(context.Background(), dto.CreateInvoiceRequest{UserID: uuid.New()})
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.invoices.CreateInvoice(context.Background(), invoiceRequest(uuid.Nil))
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateDraftForPayment_ZeroTotal(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoices.CreateDraftForPayment(context.Background(), usecase.DraftInvoiceInput{
		UserID: uuid.New(),
		Items:  []dto.InvoiceItemRequest{{Description: "Free", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero}},
	})
	var validationErr *domainErrors.ValidationError
	require.ErrorAs(t, err, &validationErr)

	var inv model.Invoice
	require.NoError(t, f.db.First(&inv).Error)
	assert.Equal(t, model.InvoiceStatusCancelled, inv.Status)
}

func TestGetInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	created, err := f.invoices.CreateInvoice(ctx, invoiceRequest(owner))
	require.NoError(t, err)

	got, err := f.invoices.GetInvoice(ctx, owner, false, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.InvoiceNumber, got.InvoiceNumber)

	_, err = f.invoices.GetInvoice(ctx, uuid.New(), false, created.ID)
	assert.ErrorIs(t, err, domainErrors.ErrInvoiceNotFound)

	got, err = f.invoices.GetInvoice(ctx, uuid.New(), true, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.invoices.CreateInvoice(ctx, invoiceRequest(uuid.New()))
	require.NoError(t, err)

	sent, err := f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, string(model.InvoiceStatusSent), sent.Status)

	// Same status is a no-op.
	_, err = f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatusSent)
	require.NoError(t, err)

	_, err = f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatusDraft)
	var transitionErr *domainErrors.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)

	_, err = f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatus("archived"))
	var validationErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.invoices.UpdateStatus(ctx, 9999, model.InvoiceStatusSent)
	assert.ErrorIs(t, err, domainErrors.ErrInvoiceNotFound)
}

func TestUpdateStatus_ManualPaidRecordsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.invoices.CreateInvoice(ctx, invoiceRequest(uuid.New()))
	require.NoError(t, err)

	paid, err := f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, string(model.InvoiceStatusPaid), paid.Status)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentID)

	payment, err := f.repos.Payment.GetByID(ctx, *paid.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, model.PaymentMethodBankTransfer, payment.Method)
	assert.Equal(t, money.Minor(4919), payment.AmountCents)
	assert.Nil(t, payment.GatewayIntentID)
	assert.Equal(t, expectedNumber(1), payment.InvoiceNumber)

	_, err = f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatusCancelled)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
}

func TestDeleteInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.invoices.CreateInvoice(ctx, invoiceRequest(uuid.New()))
	require.NoError(t, err)
	require.NoError(t, f.invoices.Delete(ctx, draft.ID))
	_, err = f.repos.Invoice.GetByID(ctx, draft.ID)
	assert.ErrorIs(t, err, domainErrors.ErrInvoiceNotFound)

	paid, err := f.invoices.CreateInvoice(ctx, invoiceRequest(uuid.New()))
	require.NoError(t, err)
	_, err = f.invoices.UpdateStatus(ctx, paid.ID, model.InvoiceStatusPaid)
	require.NoError(t, err)

	err = f.invoices.Delete(ctx, paid.ID)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
	_, err = f.repos.Invoice.GetByID(ctx, paid.ID)
	assert.NoError(t, err)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := invoiceRequest(uuid.New())
	due := 0
	req.DueDays = &due
	created, err := f.invoices.CreateInvoice(ctx, req)
	require.NoError(t, err)
	_, err = f.invoices.UpdateStatus(ctx, created.ID, model.InvoiceStatusSent)
	require.NoError(t, err)

	// Still a draft, so never overdue.
	_, err = f.invoices.CreateInvoice(ctx, req)
	require.NoError(t, err)

	n, err := f.invoices.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.invoices.GetInvoice(ctx, uuid.Nil, true, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.InvoiceStatusOverdue), got.Status)
}

func TestListInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	first, err := f.invoices.CreateInvoice(ctx, invoiceRequest(owner))
	require.NoError(t, err)
	_, err = f.invoices.CreateInvoice(ctx, invoiceRequest(uuid.New()))
	require.NoError(t, err)
	_, err = f.invoices.UpdateStatus(ctx, first.ID, model.InvoiceStatusPaid)
	require.NoError(t, err)

	own, err := f.invoices.ListUserInvoices(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, own.Invoices, 1)
	assert.Equal(t, first.ID, own.Invoices[0].ID)

	all, err := f.invoices.ListAllInvoices(ctx, dto.InvoiceListQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Invoices, 2)
	require.NotNil(t, all.Stats)
	assert.Equal(t, int64(1), all.Stats.PaidCount)
	assert.Equal(t, int64(4919), all.Stats.TotalPaidCents)
}
