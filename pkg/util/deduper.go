package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// ReminderKey 某个排班在某一天对某个用户的提醒去重 key
func ReminderKey(scheduleID, userID int64, targetDate time.Time) string {
	return fmt.Sprintf("dedup:reminder:%d:%d:%s", scheduleID, userID, targetDate.Format("2006-01-02"))
}

// AcquireOnce 尝试获取去重标记
// 第一次处理返回 true，重复返回 false
func (d *Deduper) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated reminder",
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release 删除去重标记，投递完全失败时调用以便下次重试
func (d *Deduper) Release(ctx context.Context, key string) {
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}
