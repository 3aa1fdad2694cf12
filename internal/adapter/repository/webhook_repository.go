package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

const (
	// pendingGracePeriod keeps replays away from events still being handled
	// by the request that recorded them.
	pendingGracePeriod = 5 * time.Minute

	// maxProcessingAttempts stops replays of events that keep failing.
	maxProcessingAttempts = 10
)

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook event repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookEventRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// Record saves the event, ignoring duplicates of an already stored gateway id.
func (r *webhookRepository) Record(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	if event.Status == "" {
		event.Status = model.WebhookStatusPending
	}

	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", event.GatewayEventID),
			zap.String("event_type", event.EventType),
			zap.Error(result.Error))
		return nil, false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return event, true, nil
	}

	var stored model.WebhookEvent
	if err := conn(ctx, r.db).Where("gateway_event_id = ?", event.GatewayEventID).First(&stored).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load webhook event: %w", err)
	}
	return &stored, false, nil
}

// MarkProcessed settles the event as completed or ignored.
func (r *webhookRepository) MarkProcessed(ctx context.Context, gatewayEventID string, status model.WebhookStatus) error {
	now := time.Now()

	result := conn(ctx, r.db).
		Model(&model.WebhookEvent{}).
		Where("gateway_event_id = ?", gatewayEventID).
		Updates(map[string]interface{}{
			"status":        status,
			"processed_at":  &now,
			"last_error":    nil,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", gatewayEventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", gatewayEventID)
	}
	return nil
}

// MarkFailed records cause and schedules the next retry with exponential backoff.
func (r *webhookRepository) MarkFailed(ctx context.Context, gatewayEventID string, cause error) error {
	var event model.WebhookEvent
	if err := conn(ctx, r.db).Where("gateway_event_id = ?", gatewayEventID).First(&event).Error; err != nil {
		return fmt.Errorf("failed to get webhook event: %w", err)
	}

	attempts := event.ProcessingAttempts + 1
	nextRetry := time.Now().Add(model.RetryDelay(attempts))
	errorMsg := cause.Error()

	err := conn(ctx, r.db).
		Model(&model.WebhookEvent{}).
		Where("gateway_event_id = ?", gatewayEventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusFailed,
			"processing_attempts": attempts,
			"last_error":          &errorMsg,
			"next_retry_at":       &nextRetry,
		}).Error
	if err != nil {
		r.logger.Error("Failed to mark webhook as failed",
			zap.String("event_id", gatewayEventID),
			zap.Error(err))
		return fmt.Errorf("failed to mark webhook as failed: %w", err)
	}
	return nil
}

// ListRetryable returns failed events whose backoff elapsed and pending events
// that were never settled, oldest first.
func (r *webhookRepository) ListRetryable(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	now := time.Now()

	query := conn(ctx, r.db).
		Where("(status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)) OR (status = ? AND created_at <= ?)",
			model.WebhookStatusFailed, now,
			model.WebhookStatusPending, now.Add(-pendingGracePeriod)).
		Where("processing_attempts < ?", maxProcessingAttempts).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []model.WebhookEvent
	if err := query.Find(&events).Error; err != nil {
		r.logger.Error("Failed to get retryable webhook events", zap.Error(err))
		return nil, fmt.Errorf("failed to get retryable webhook events: %w", err)
	}
	return events, nil
}
