// Package notification 管理站内通知：创建、已读状态、列表与按期清理。
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"wastereminder/internal/model"
	"wastereminder/pkg/logger"
)

// ErrInvalidNotification 通知参数不合法
var ErrInvalidNotification = errors.New("invalid notification")

// Store 通知持久化
type Store interface {
	Insert(ctx context.Context, n *model.Notification) error
	MarkRead(ctx context.Context, userID, id int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error)
	Delete(ctx context.Context, userID, id int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Writer 站内通知的唯一写入口
type Writer struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewWriter(store Store, logger *zap.Logger) *Writer {
	return &Writer{store: store, logger: logger, now: time.Now}
}

// Create 创建一条未读通知
func (w *Writer) Create(
	ctx context.Context,
	userID int64,
	title, message string,
	ntype model.NotificationType,
	relatedReportID *int64,
) (*model.Notification, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidNotification, userID)
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty title or message", ErrInvalidNotification)
	}
	if _, err := model.ParseNotificationType(string(ntype)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}

	n := &model.Notification{
		UserID:          userID,
		Title:           title,
		Message:         message,
		Type:            ntype,
		RelatedReportID: relatedReportID,
		IsRead:          false,
		CreatedAt:       w.now().UTC(),
	}
	if err := w.store.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification for user %d: %w", userID, err)
	}

	logger.WithTrace(ctx, w.logger).Debug("Notification created",
		zap.Int64("notification_id", n.ID),
		zap.Int64("user_id", userID),
		zap.String("type", string(ntype)),
	)
	return n, nil
}

// MarkRead 幂等；已读通知保留首次的 read_at
func (w *Writer) MarkRead(ctx context.Context, userID, id int64) error {
	return w.store.MarkRead(ctx, userID, id, w.now().UTC())
}

// MarkAllRead 幂等；只影响未读通知，返回本次翻转的数量
func (w *Writer) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return w.store.MarkAllRead(ctx, userID, w.now().UTC())
}

func (w *Writer) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return w.store.CountUnread(ctx, userID)
}

// List 按创建时间倒序
func (w *Writer) List(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	return w.store.ListByUser(ctx, userID, unreadOnly)
}

func (w *Writer) Delete(ctx context.Context, userID, id int64) error {
	return w.store.Delete(ctx, userID, id)
}

// DeleteOlderThan 清理 cutoff 之前创建的通知
func (w *Writer) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	w.logger.Info("Old notifications purged",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", n),
	)
	return n, nil
}
