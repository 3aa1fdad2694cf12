package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/provider"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

// IntentUpdate is a gateway-reported state for one payment intent.
type IntentUpdate struct {
	IntentID       string
	Target         model.PaymentStatus
	ChargeID       string
	FailureCode    string
	FailureMessage string
	At             time.Time
}

// ReplayResult summarises a webhook replay run.
type ReplayResult struct {
	Completed int `json:"completed"`
	Ignored   int `json:"ignored"`
	Failed    int `json:"failed"`
}

// ReconciliationService is the only writer of succeeded and failed payment
// states. Webhooks, read-time status checks and the CLI all go through it.
type ReconciliationService struct {
	tx       repository.Transactor
	payments repository.PaymentRepository
	invoices repository.InvoiceRepository
	webhooks repository.WebhookEventRepository
	gateway  provider.PaymentGateway
	notifier PaymentNotifier
	logger   *zap.Logger
}

func NewReconciliationService(
	tx repository.Transactor,
	payments repository.PaymentRepository,
	invoices repository.InvoiceRepository,
	webhooks repository.WebhookEventRepository,
	gateway provider.PaymentGateway,
	notifier PaymentNotifier,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		tx:       tx,
		payments: payments,
		invoices: invoices,
		webhooks: webhooks,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
	}
}

// ApplyIntentStatus moves the payment owning u.IntentID to u.Target when the
// state machine allows it. A succeeded payment marks its invoice paid in the
// same transaction. applied is false when the payment was already at or past
// the target, and the owner is only notified when applied is true.
func (s *ReconciliationService) ApplyIntentStatus(ctx context.Context, u IntentUpdate) (*model.Payment, bool, error) {
	if !u.Target.Valid() || u.Target == model.PaymentStatusPending {
		return nil, false, fmt.Errorf("cannot reconcile intent %s to %q", u.IntentID, u.Target)
	}
	if u.At.IsZero() {
		u.At = time.Now()
	}

	var (
		payment *model.Payment
		applied bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		payment, applied, err = s.payments.Transition(ctx, u.IntentID, u.Target.Predecessors(), model.PaymentTransition{
			To:             u.Target,
			ChargeID:       u.ChargeID,
			FailureCode:    u.FailureCode,
			FailureMessage: u.FailureMessage,
			At:             u.At,
		})
		if err != nil || !applied {
			return err
		}

		if u.Target == model.PaymentStatusSucceeded && payment.InvoiceID != nil {
			paidAt := u.At
			if payment.PaidAt != nil {
				paidAt = *payment.PaidAt
			}
			marked, err := s.invoices.MarkPaid(ctx, *payment.InvoiceID, payment.ID, paidAt)
			if err != nil {
				return err
			}
			if !marked {
				s.logger.Info("Invoice already paid",
					zap.Int64("invoice_id", *payment.InvoiceID),
					zap.Int64("payment_id", payment.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !applied {
		s.logger.Info("Payment transition not applied",
			zap.String("intent_id", u.IntentID),
			zap.String("current_status", string(payment.Status)),
			zap.String("target_status", string(u.Target)))
		return payment, false, nil
	}

	s.logger.Info("Payment reconciled",
		zap.Int64("payment_id", payment.ID),
		zap.String("intent_id", u.IntentID),
		zap.String("status", string(payment.Status)))

	switch payment.Status {
	case model.PaymentStatusSucceeded:
		s.notifier.PaymentConfirmed(ctx, payment)
	case model.PaymentStatusFailed:
		s.notifier.PaymentFailed(ctx, payment)
	}

	return payment, true, nil
}

// HandleWebhookEvent applies a verified gateway event. It only fails when
// the gateway is not configured. Per-event problems are logged and recorded
// on the stored event so the gateway is never asked to redeliver.
func (s *ReconciliationService) HandleWebhookEvent(ctx context.Context, event *provider.Event) error {
	if !s.gateway.Enabled() {
		return domainErrors.NewConfigurationError("payment gateway", "webhook received while payments are disabled")
	}
	if event == nil {
		return nil
	}

	record := &model.WebhookEvent{
		Provider:       s.gateway.Name(),
		GatewayEventID: event.ID,
		EventType:      string(event.Type),
		IntentID:       event.IntentID,
		ChargeID:       event.ChargeID,
		FailureCode:    event.FailureCode,
		FailureMessage: event.FailureMessage,
	}
	if !event.Created.IsZero() {
		created := event.Created
		record.GatewayCreatedAt = &created
	}

	stored, created, err := s.webhooks.Record(ctx, record)
	if err != nil {
		// Without the delivery log the event is still applied; the
		// conditional transitions keep that safe.
		s.logger.Error("Failed to record webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		s.process(ctx, event)
		return nil
	}

	if !created && stored.Settled() {
		s.logger.Info("Duplicate webhook event skipped",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("status", string(stored.Status)))
		return nil
	}

	s.settle(ctx, event)
	return nil
}

// ReplayFailedEvents re-applies stored events that failed or were never settled.
func (s *ReconciliationService) ReplayFailedEvents(ctx context.Context, limit int) (*ReplayResult, error) {
	events, err := s.webhooks.ListRetryable(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{}
	for _, stored := range events {
		event := &provider.Event{
			ID:             stored.GatewayEventID,
			Type:           provider.EventType(stored.EventType),
			IntentID:       stored.IntentID,
			ChargeID:       stored.ChargeID,
			FailureCode:    stored.FailureCode,
			FailureMessage: stored.FailureMessage,
		}
		if stored.GatewayCreatedAt != nil {
			event.Created = *stored.GatewayCreatedAt
		}

		switch s.settle(ctx, event) {
		case model.WebhookStatusCompleted:
			result.Completed++
		case model.WebhookStatusIgnored:
			result.Ignored++
		default:
			result.Failed++
		}
	}

	s.logger.Info("Webhook replay finished",
		zap.Int("completed", result.Completed),
		zap.Int("ignored", result.Ignored),
		zap.Int("failed", result.Failed))
	return result, nil
}

// settle processes event and records the outcome on the stored row.
func (s *ReconciliationService) settle(ctx context.Context, event *provider.Event) model.WebhookStatus {
	status, err := s.process(ctx, event)
	if err != nil {
		if markErr := s.webhooks.MarkFailed(ctx, event.ID, err); markErr != nil {
			s.logger.Error("Failed to record webhook failure",
				zap.String("event_id", event.ID),
				zap.Error(markErr))
		}
		return model.WebhookStatusFailed
	}

	if err := s.webhooks.MarkProcessed(ctx, event.ID, status); err != nil {
		s.logger.Error("Failed to mark webhook processed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
	return status
}

func (s *ReconciliationService) process(ctx context.Context, event *provider.Event) (model.WebhookStatus, error) {
	var update IntentUpdate
	switch event.Type {
	case provider.EventPaymentSucceeded:
		update = IntentUpdate{Target: model.PaymentStatusSucceeded, ChargeID: event.ChargeID}
	case provider.EventPaymentFailed:
		update = IntentUpdate{
			Target:         model.PaymentStatusFailed,
			ChargeID:       event.ChargeID,
			FailureCode:    event.FailureCode,
			FailureMessage: event.FailureMessage,
		}
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return model.WebhookStatusIgnored, nil
	}
	update.IntentID = event.IntentID

	payment, applied, err := s.ApplyIntentStatus(ctx, update)
	if err != nil {
		reconErr := &domainErrors.ReconciliationError{
			EventID:  event.ID,
			IntentID: event.IntentID,
			Reason:   "apply failed",
			Err:      err,
		}
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			// The webhook can overtake the local insert; replay picks it up later.
			reconErr.Reason = "unknown intent"
			s.logger.Warn("Webhook references unknown payment intent", zap.Error(reconErr))
		} else {
			s.logger.Error("Failed to reconcile webhook event", zap.Error(reconErr))
		}
		return model.WebhookStatusFailed, reconErr
	}

	if !applied && payment.Status != update.Target {
		reconErr := &domainErrors.ReconciliationError{
			EventID:  event.ID,
			IntentID: event.IntentID,
			Reason:   fmt.Sprintf("payment already %s", payment.Status),
		}
		s.logger.Warn("Webhook event ignored for settled payment", zap.Error(reconErr))
	}
	return model.WebhookStatusCompleted, nil
}

// SyncIntent compares payment with the gateway's view of its intent and
// applies the gateway state when it is a valid move forward. Gateway errors
// are logged and the local payment is returned unchanged.
func (s *ReconciliationService) SyncIntent(ctx context.Context, payment *model.Payment) (*model.Payment, string) {
	if payment.GatewayIntentID == nil || !s.gateway.Enabled() {
		return payment, ""
	}

	intent, err := s.gateway.RetrieveIntent(ctx, *payment.GatewayIntentID)
	if err != nil {
		s.logger.Warn("Gateway status lookup failed, returning local status",
			zap.Int64("payment_id", payment.ID),
			zap.String("intent_id", *payment.GatewayIntentID),
			zap.Error(err))
		return payment, ""
	}

	target := intent.Status.PaymentStatus()
	if target == payment.Status || !payment.Status.CanTransitionTo(target) {
		return payment, intent.RawStatus
	}

	update := IntentUpdate{
		IntentID: intent.ID,
		Target:   target,
		ChargeID: intent.ChargeID,
	}
	if target == model.PaymentStatusFailed {
		update.FailureCode = intent.RawStatus
		update.FailureMessage = "payment intent " + intent.RawStatus
	}

	updated, _, err := s.ApplyIntentStatus(ctx, update)
	if err != nil {
		s.logger.Error("Failed to apply gateway status",
			zap.Int64("payment_id", payment.ID),
			zap.String("intent_id", intent.ID),
			zap.Error(err))
		return payment, intent.RawStatus
	}
	return updated, intent.RawStatus
}

// ReconcileStale pulls the gateway status of pending and processing payments
// not updated since before. It returns how many payments changed state.
func (s *ReconciliationService) ReconcileStale(ctx context.Context, before time.Time, limit int) (int, error) {
	if !s.gateway.Enabled() {
		return 0, domainErrors.NewConfigurationError("payment gateway", "cannot reconcile while payments are disabled")
	}

	stale, err := s.payments.ListStale(ctx, []model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusProcessing}, before, limit)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range stale {
		updated, _ := s.SyncIntent(ctx, &stale[i])
		if updated.Status != stale[i].Status {
			changed++
		}
	}

	s.logger.Info("Stale payment reconciliation finished",
		zap.Int("checked", len(stale)),
		zap.Int("changed", changed))
	return changed, nil
}
