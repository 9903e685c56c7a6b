package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wastereminder/internal/model"
	"wastereminder/pkg/logger"
)

// NotificationService 当前用户的站内通知操作
type NotificationService interface {
	List(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
}

type NotificationHandler struct {
	svc    NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc:    svc,
		logger: logger,
	}
}

// GetNotifications 当前用户的通知，?unread=true 只返回未读
// GET /api/notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	list, err := h.svc.List(c.Request.Context(), uid, unreadOnly)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list notifications",
			zap.Int64("user_id", uid),
			zap.Error(err),
		)
		writeError(c, "failed to list notifications", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"count":         len(list),
	})
}

// GetUnreadCount GET /api/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	n, err := h.svc.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		writeError(c, "failed to count unread notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

// MarkRead PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), uid, id); err != nil {
		writeError(c, "failed to mark notification as read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read", "id": id})
}

// MarkAllRead PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	n, err := h.svc.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		writeError(c, "failed to mark notifications as read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read", "updated": n})
}

// DeleteNotification DELETE /api/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), uid, id); err != nil {
		writeError(c, "failed to delete notification", err)
		return
	}
	c.Status(http.StatusNoContent)
}
