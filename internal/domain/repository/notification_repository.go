package repository

import (
	"context"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

// NotificationRepository stores user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

// NotificationPublisher pushes stored notifications to live subscribers.
type NotificationPublisher interface {
	Publish(ctx context.Context, n *model.Notification) error
}

// NotificationSubscriber streams notifications published for one user. The
// channel closes when ctx is done.
type NotificationSubscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan model.Notification, error)
}
