package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
)

type NotificationListQuery struct {
	Limit      int  `query:"limit" validate:"omitempty,min=1,max=100"`
	UnreadOnly bool `query:"unreadOnly"`
}

type NotificationResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unreadCount"`
}

func ToNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.Hex(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func ToNotificationResponses(ns []model.Notification) []NotificationResponse {
	return lo.Map(ns, func(n model.Notification, _ int) NotificationResponse {
		return ToNotificationResponse(n)
	})
}
