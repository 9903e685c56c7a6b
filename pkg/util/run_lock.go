package util

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 只有持有者才能释放锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock 基于 Redis 的跨实例互斥锁
type RunLock struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

// NewRunLock 创建 RunLock，ttl 应大于一次运行的最长时间
func NewRunLock(rdb redis.UniversalClient, key string, ttl time.Duration) *RunLock {
	return &RunLock{rdb: rdb, key: key, ttl: ttl}
}

// TryAcquire 尝试获取锁，返回释放函数；锁被其他实例持有时 ok=false
func (l *RunLock) TryAcquire(ctx context.Context) (release func(), ok bool, err error) {
	token := make([]byte, 16)
	_, _ = rand.Read(token)
	value := hex.EncodeToString(token)

	ok, err = l.rdb.SetNX(ctx, l.key, value, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, value).Err()
	}
	return release, true, nil
}
