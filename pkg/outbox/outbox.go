package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Event 表示一个待发布的事件
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   *int64
	RoutingKey    string
	Payload       json.RawMessage
	Status        string
	RetryCount    int
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DBTX pgxpool.Pool 与 pgx.Tx 的公共子集
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository 提供 Outbox 表操作
type Repository struct {
	db    DBTX
	lease time.Duration
}

// NewRepository 创建新的 Outbox Repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db, lease: 30 * time.Second}
}

// InsertEvent 插入事件到 outbox，必须与业务写入使用同一个事务
func (r *Repository) InsertEvent(ctx context.Context, tx DBTX, event *Event) error {
	query := `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		event.AggregateType,
		event.AggregateID,
		event.RoutingKey,
		event.Payload,
		event.Status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents 认领一批待发送事件；认领的事件在租期内对其他实例不可见
func (r *Repository) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		UPDATE outbox_events
		SET next_retry_at = NOW() + make_interval(secs => $2), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = 'pending'
			AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, aggregate_type, aggregate_id, routing_key, payload, status,
		          retry_count, next_retry_at, created_at, updated_at
	`

	rows, err := r.db.Query(ctx, query, limit, r.lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.RoutingKey,
			&e.Payload,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// MarkAsSent 标记事件为已发送
func (r *Repository) MarkAsSent(ctx context.Context, eventID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'sent', next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// MarkAsFailed 增加重试次数；达到上限后标记为 failed，否则按次数线性退避
func (r *Repository) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'pending' END,
		    next_retry_at = CASE WHEN retry_count + 1 >= $2 THEN NULL
		                         ELSE NOW() + make_interval(secs => (retry_count + 1) * 5) END,
		    updated_at = NOW()
		WHERE id = $1
	`, eventID, maxRetries)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

// DeleteSentBefore 清理已发送且早于 cutoff 的事件
func (r *Repository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM outbox_events WHERE status = 'sent' AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sent events: %w", err)
	}
	return tag.RowsAffected(), nil
}
