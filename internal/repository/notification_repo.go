package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	contractmq "wastereminder/contracts/mq"
	"wastereminder/internal/model"
	"wastereminder/pkg/outbox"
)

type NotificationRepository struct {
	db     dbtx
	outbox *outbox.Repository
}

func NewNotificationRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository) *NotificationRepository {
	return &NotificationRepository{db: db, outbox: outboxRepo}
}

const notificationColumns = `id, user_id, title, message, type, related_report_id, is_read, created_at, read_at`

// Insert writes n and its notification.created outbox event in one transaction.
// ID and CreatedAt are filled from the database.
func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO notifications (user_id, title, message, type, related_report_id, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
			RETURNING id, created_at
		`
		if err := tx.QueryRow(ctx, query,
			n.UserID, n.Title, n.Message, string(n.Type), n.RelatedReportID, n.CreatedAt,
		).Scan(&n.ID, &n.CreatedAt); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}

		payload := contractmq.NotificationCreatedPayload{
			NotificationID:  n.ID,
			UserID:          n.UserID,
			Type:            string(n.Type),
			Title:           n.Title,
			Message:         n.Message,
			RelatedReportID: n.RelatedReportID,
			CreatedAt:       n.CreatedAt,
		}
		if _, err := outbox.InsertEventInTx(ctx, tx, r.outbox, "notification", &n.ID,
			contractmq.RoutingKeyNotificationCreated, payload); err != nil {
			return err
		}
		return nil
	})
}

// MarkRead flips is_read for one owned notification. An already-read row keeps
// its read_at. ErrNotFound when the row does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64, at time.Time) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllRead touches unread rows only and returns how many were flipped.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND is_read = FALSE
	`
	tag, err := r.db.Exec(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read for user %d: %w", userID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications for user %d: %w", userID, err)
	}
	return n, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		var (
			n     model.Notification
			ntype string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &ntype,
			&n.RelatedReportID, &n.IsRead, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.Type, err = model.ParseNotificationType(ntype); err != nil {
			return nil, fmt.Errorf("notification %d: %w", n.ID, err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// Delete removes one owned notification.
func (r *NotificationRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteOlderThan removes notifications created before cutoff.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
