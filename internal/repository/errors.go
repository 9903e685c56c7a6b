package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wastereminder/internal/model"
	"wastereminder/pkg/outbox"
)

// ErrNotFound 记录不存在（或不属于当前用户）
var ErrNotFound = errors.New("not found")

// dbtx 在 outbox.DBTX 之上可开启事务，*pgxpool.Pool 满足
type dbtx interface {
	outbox.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

// lifecycleColumns 各表共用的生命周期列
const lifecycleColumns = `lifecycle_state, COALESCE(lifecycle_reason, ''), lifecycle_changed_at`

func toLifecycle(state, reason string, changedAt time.Time) (model.Lifecycle, error) {
	st, err := model.ParseLifecycleState(state)
	if err != nil {
		return model.Lifecycle{}, err
	}
	return model.Lifecycle{State: st, Reason: reason, ChangedAt: changedAt}, nil
}
