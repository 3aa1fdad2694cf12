package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
	"github.com/wekeepgrowing/portal-billing/pkg/messaging"
)

func userChannel(channel, userID string) string {
	return fmt.Sprintf("%s:%s", channel, userID)
}

// redisNotificationPublisher fans notifications out over Redis pub/sub.
type redisNotificationPublisher struct {
	redisClient messaging.RedisClient
	channel     string
}

// NewRedisNotificationPublisher creates a publisher writing to channel and channel:{user}.
func NewRedisNotificationPublisher(client messaging.RedisClient, channel string) repository.NotificationPublisher {
	return &redisNotificationPublisher{
		redisClient: client,
		channel:     channel,
	}
}

func (p *redisNotificationPublisher) Publish(ctx context.Context, notification *model.Notification) error {
	if notification == nil {
		return fmt.Errorf("notification is nil")
	}

	feed := userChannel(p.channel, notification.UserID)
	if err := p.redisClient.Publish(ctx, feed, notification); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", feed, err)
	}

	if err := p.redisClient.Publish(ctx, p.channel, notification); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	return nil
}

// redisNotificationSubscriber reads one user's channel:{user} feed.
type redisNotificationSubscriber struct {
	redisClient messaging.RedisClient
	channel     string
	logger      *zap.Logger
}

func NewRedisNotificationSubscriber(client messaging.RedisClient, channel string, logger *zap.Logger) repository.NotificationSubscriber {
	return &redisNotificationSubscriber{
		redisClient: client,
		channel:     channel,
		logger:      logger,
	}
}

func (s *redisNotificationSubscriber) Subscribe(ctx context.Context, userID string) (<-chan model.Notification, error) {
	feed := userChannel(s.channel, userID)
	messages, err := s.redisClient.Subscribe(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", feed, err)
	}

	out := make(chan model.Notification)
	go func() {
		defer close(out)

		for msg := range messages {
			var n model.Notification
			if err := json.Unmarshal(msg.Payload, &n); err != nil {
				s.logger.Warn("Dropping undecodable notification",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}

			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when Redis is not configured.
func NewNoopPublisher() repository.NotificationPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, *model.Notification) error { return nil }

type noopSubscriber struct{}

// NewNoopSubscriber is used when Redis is not configured. Every subscription
// fails with ErrStreamUnavailable.
func NewNoopSubscriber() repository.NotificationSubscriber {
	return noopSubscriber{}
}

func (noopSubscriber) Subscribe(context.Context, string) (<-chan model.Notification, error) {
	return nil, domainErrors.ErrStreamUnavailable
}
