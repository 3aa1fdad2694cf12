package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/domain/money"
	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
	dashboardLink            = "/dashboard"
)

// PaymentNotifier is told about payments that reached a final state.
type PaymentNotifier interface {
	PaymentConfirmed(ctx context.Context, payment *model.Payment)
	PaymentFailed(ctx context.Context, payment *model.Payment)
}

// NotifyInput describes a notification to create.
type NotifyInput struct {
	UserID  string
	Type    model.NotificationType
	Title   string
	Message string
	Link    string
}

type NotificationService struct {
	repo       repository.NotificationRepository
	publisher  repository.NotificationPublisher
	subscriber repository.NotificationSubscriber
	logger     *zap.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	publisher repository.NotificationPublisher,
	subscriber repository.NotificationSubscriber,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
	}
}

// Notify stores the notification and then pushes it to live subscribers.
// A failed push is logged; the stored notification is still returned.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*model.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, domainErrors.NewValidationError("user", "is required")
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, domainErrors.NewValidationError("message", "title and message are required")
	}
	if in.Type == "" {
		in.Type = model.NotificationTypeSystem
	}
	if !in.Type.Valid() {
		return nil, domainErrors.NewValidationError("type", "unknown notification type %q", in.Type)
	}

	n := &model.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		Link:    in.Link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("Failed to publish notification",
			zap.String("user_id", n.UserID),
			zap.String("notification_id", n.ID.Hex()),
			zap.Error(err))
	}

	return n, nil
}

func (s *NotificationService) PaymentConfirmed(ctx context.Context, payment *model.Payment) {
	s.notifyPayment(ctx, payment, "Pagamento Confirmado",
		fmt.Sprintf("O teu pagamento de %s foi confirmado com sucesso.", money.Format(payment.AmountCents, payment.Currency)))
}

func (s *NotificationService) PaymentFailed(ctx context.Context, payment *model.Payment) {
	s.notifyPayment(ctx, payment, "Pagamento Falhou",
		fmt.Sprintf("O teu pagamento de %s falhou. Por favor, tenta novamente.", money.Format(payment.AmountCents, payment.Currency)))
}

func (s *NotificationService) notifyPayment(ctx context.Context, payment *model.Payment, title, message string) {
	_, err := s.Notify(ctx, NotifyInput{
		UserID:  payment.UserID.String(),
		Type:    model.NotificationTypeSystem,
		Title:   title,
		Message: message,
		Link:    dashboardLink,
	})
	if err != nil {
		s.logger.Error("Failed to notify payment owner",
			zap.Int64("payment_id", payment.ID),
			zap.String("user_id", payment.UserID.String()),
			zap.String("title", title),
			zap.Error(err))
	}
}

// Stream delivers userID's notifications as they are published, until ctx is done.
func (s *NotificationService) Stream(ctx context.Context, userID string) (<-chan model.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domainErrors.NewValidationError("user", "is required")
	}
	return s.subscriber.Subscribe(ctx, userID)
}

// List returns the newest notifications of userID and the unread count.
func (s *NotificationService) List(ctx context.Context, userID string, query dto.NotificationListQuery) (*dto.NotificationListResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	notifications, err := s.repo.ListByUser(ctx, userID, query.UnreadOnly, limit)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.NotificationListResponse{
		Notifications: dto.ToNotificationResponses(notifications),
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*dto.NotificationResponse, error) {
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := dto.ToNotificationResponse(*n)
	return &resp, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
