package provider

import (
	"context"
	"time"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
)

// PaymentGateway is the contract with the external payment processor.
// Amounts always cross this boundary in minor units.
type PaymentGateway interface {
	// Name identifies the processor in logs and stored events.
	Name() string

	// Enabled is false for the disabled gateway.
	Enabled() bool

	// CreateIntent opens a remote payment intent the client confirms with ClientSecret.
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)

	// RetrieveIntent returns the processor's current view of an intent.
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)

	// CancelIntent voids an intent that has not been confirmed.
	CancelIntent(ctx context.Context, intentID string) error

	// ConstructEvent verifies signature against the raw request body and
	// decodes the event. It fails with errors.ErrInvalidSignature when the
	// signature does not match.
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

// CreateIntentRequest describes the charge to open.
type CreateIntentRequest struct {
	Amount         money.Minor
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// IntentStatus is the processor's intent state collapsed to what reconciliation needs.
type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "pending"
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusSucceeded  IntentStatus = "succeeded"
	IntentStatusCanceled   IntentStatus = "canceled"
)

// PaymentStatus maps the intent state onto the local payment state.
// A canceled intent counts as failed.
func (s IntentStatus) PaymentStatus() model.PaymentStatus {
	switch s {
	case IntentStatusProcessing:
		return model.PaymentStatusProcessing
	case IntentStatusSucceeded:
		return model.PaymentStatusSucceeded
	case IntentStatusCanceled:
		return model.PaymentStatusFailed
	default:
		return model.PaymentStatusPending
	}
}

// Intent is a normalized payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	RawStatus    string
	ChargeID     string
	Amount       money.Minor
	Currency     string
}

// EventType enumerates the events reconciliation acts on.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
)

// Event is a verified gateway event.
type Event struct {
	ID             string
	Type           EventType
	IntentID       string
	ChargeID       string
	FailureCode    string
	FailureMessage string
	Created        time.Time
}
