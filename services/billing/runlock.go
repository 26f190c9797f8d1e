package billing

import (
	"context"
	"fmt"
	"time"

	"nestly/utils"

	"github.com/go-redis/redis/v8"
)

// RedisRunLock implements RunLock with a SETNX-style key per calendar day.
// The TTL bounds how long a crashed run can keep the day locked. The billed
// flag and the late-fee idempotency check remain the real double-billing
// guards; this lock just keeps concurrent triggers from racing them.
type RedisRunLock struct {
	Client *redis.Client
}

func (l *RedisRunLock) key(day time.Time) string {
	return utils.BillingLockPrefix + day.Format("2006-01-02")
}

// Acquire takes the day's run lock. Returns false without error when another
// run already holds it.
func (l *RedisRunLock) Acquire(ctx context.Context, day time.Time) (bool, error) {
	ok, err := l.Client.SetNX(ctx, l.key(day), 1, utils.BillingLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("error acquiring billing run lock: %w", err)
	}
	return ok, nil
}

// Release frees the day's run lock.
func (l *RedisRunLock) Release(ctx context.Context, day time.Time) error {
	if err := l.Client.Del(ctx, l.key(day)).Err(); err != nil {
		return fmt.Errorf("error releasing billing run lock: %w", err)
	}
	return nil
}
