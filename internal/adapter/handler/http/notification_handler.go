package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/portal-billing/internal/domain/dto"
	"github.com/wekeepgrowing/portal-billing/internal/domain/model"
	"github.com/wekeepgrowing/portal-billing/internal/middleware/auth"
)

const streamKeepAlive = 25 * time.Second

// NotificationService is the part of usecase.NotificationService the handlers use.
type NotificationService interface {
	List(ctx context.Context, userID string, query dto.NotificationListQuery) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, userID, id string) (*dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	Stream(ctx context.Context, userID string) (<-chan model.Notification, error)
}

type NotificationHandler struct {
	service NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

// GetNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var q dto.NotificationListQuery
	if err := echo.QueryParamsBinder(c).Int("limit", &q.Limit).Bool("unreadOnly", &q.UnreadOnly).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification query")
	}

	resp, err := h.service.List(c.Request().Context(), user.UserID.String(), q)
	if err != nil {
		return respondError(h.logger, err, "Failed to list notifications", zap.String("user_id", user.UserID.String()))
	}

	return c.JSON(http.StatusOK, resp)
}

// MarkRead handles PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	resp, err := h.service.MarkRead(c.Request().Context(), user.UserID.String(), c.Param("id"))
	if err != nil {
		return respondError(h.logger, err, "Failed to mark notification read",
			zap.String("user_id", user.UserID.String()),
			zap.String("notification_id", c.Param("id")))
	}

	return c.JSON(http.StatusOK, resp)
}

// MarkAllRead handles PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	n, err := h.service.MarkAllRead(c.Request().Context(), user.UserID.String())
	if err != nil {
		return respondError(h.logger, err, "Failed to mark notifications read", zap.String("user_id", user.UserID.String()))
	}

	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), user.UserID.String(), c.Param("id")); err != nil {
		return respondError(h.logger, err, "Failed to delete notification",
			zap.String("user_id", user.UserID.String()),
			zap.String("notification_id", c.Param("id")))
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Notification deleted"})
}

// StreamNotifications handles GET /api/v1/notifications/stream. New
// notifications are sent as server-sent events until the client goes away.
func (h *NotificationHandler) StreamNotifications(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	res := c.Response()
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming not supported")
	}

	ctx := c.Request().Context()
	stream, err := h.service.Stream(ctx, user.UserID.String())
	if err != nil {
		return respondError(h.logger, err, "Failed to open notification stream", zap.String("user_id", user.UserID.String()))
	}

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case n, ok := <-stream:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(dto.ToNotificationResponse(n))
			if err != nil {
				h.logger.Error("Failed to encode notification", zap.String("notification_id", n.ID.Hex()), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(res, "id: %s\nevent: notification\ndata: %s\n\n", n.ID.Hex(), payload); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
