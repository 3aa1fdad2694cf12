package repository

import (
	"context"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

// WebhookEventRepository is the delivery log for gateway events.
type WebhookEventRepository interface {
	// Record inserts the event unless its gateway id is already known and
	// returns the stored row. created is false for redeliveries.
	Record(ctx context.Context, event *model.WebhookEvent) (stored *model.WebhookEvent, created bool, err error)
	MarkProcessed(ctx context.Context, gatewayEventID string, status model.WebhookStatus) error
	MarkFailed(ctx context.Context, gatewayEventID string, cause error) error
	ListRetryable(ctx context.Context, limit int) ([]model.WebhookEvent, error)
}
