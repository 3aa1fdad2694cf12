package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
)

const providerName = "stripe"

// StripeProvider implements provider.PaymentGateway on top of PaymentIntents.
type StripeProvider struct {
	sc            *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeProvider creates a new Stripe provider
func NewStripeProvider(secretKey, webhookSecret string, timeout time.Duration, logger *zap.Logger) *StripeProvider {
	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return NewStripeProviderWithBackends(secretKey, webhookSecret, backends, logger)
}

// NewStripeProviderWithBackends lets callers point the client at another API host.
func NewStripeProviderWithBackends(secretKey, webhookSecret string, backends *stripe.Backends, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{
		sc:            client.New(secretKey, backends),
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (s *StripeProvider) Name() string  { return providerName }
func (s *StripeProvider) Enabled() bool { return true }

func (s *StripeProvider) CreateIntent(ctx context.Context, req provider.CreateIntentRequest) (*provider.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(int64(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		s.logger.Error("Failed to create payment intent",
			zap.Int64("amount", int64(req.Amount)),
			zap.String("currency", req.Currency),
			zap.Error(err))
		return nil, domainErrors.NewGatewayError(providerName, "create intent", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("intent_id", pi.ID),
		zap.Int64("amount", pi.Amount),
		zap.String("status", string(pi.Status)))

	return toIntent(pi), nil
}

func (s *StripeProvider) RetrieveIntent(ctx context.Context, intentID string) (*provider.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, domainErrors.NewGatewayError(providerName, "retrieve intent", err)
	}
	return toIntent(pi), nil
}

func (s *StripeProvider) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := s.sc.PaymentIntents.Cancel(intentID, params); err != nil {
		return domainErrors.NewGatewayError(providerName, "cancel intent", err)
	}
	return nil
}

// ConstructEvent verifies the Stripe-Signature header and normalizes
// payment_intent events. Other event types come back with only ID, Type and
// Created set.
func (s *StripeProvider) ConstructEvent(payload []byte, signature string) (*provider.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}

	out := &provider.Event{
		ID:      event.ID,
		Type:    provider.EventType(event.Type),
		Created: time.Unix(event.Created, 0),
	}

	if !strings.HasPrefix(string(event.Type), "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, domainErrors.NewValidationError("payload", "malformed payment intent in event %s", event.ID)
	}

	out.IntentID = pi.ID
	if pi.LatestCharge != nil {
		out.ChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		out.FailureCode = string(pi.LastPaymentError.Code)
		if pi.LastPaymentError.DeclineCode != "" {
			out.FailureCode = string(pi.LastPaymentError.DeclineCode)
		}
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *provider.Intent {
	intent := &provider.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapStatus(pi.Status),
		RawStatus:    string(pi.Status),
		Amount:       money.Minor(pi.Amount),
		Currency:     strings.ToUpper(string(pi.Currency)),
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	return intent
}

func mapStatus(status stripe.PaymentIntentStatus) provider.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return provider.IntentStatusSucceeded
	case stripe.PaymentIntentStatusProcessing:
		return provider.IntentStatusProcessing
	case stripe.PaymentIntentStatusCanceled:
		return provider.IntentStatusCanceled
	default:
		return provider.IntentStatusPending
	}
}
