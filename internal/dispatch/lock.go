package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/tablyhq/tably/internal/config"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// NewRedisClient builds the shared Redis client, or nil when no address
// is configured. The lock degrades to per-process only in that case.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Locker is a cross-terminal per-bill dispatch lock. Two terminals sharing
// one database must not run a dispatch cycle for the same bill at once.
type Locker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewLocker(client *redis.Client, cfg config.Config) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    time.Duration(cfg.DispatchLockTTL) * time.Second,
	}
}

// TryLock claims the bill's dispatch lock. A nil Locker always grants it,
// the database-level processing claim still prevents double sends.
func (l *Locker) TryLock(ctx context.Context, billID snowflake.ID) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(billID), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the lock only when the token still matches, so an expired
// claim cannot release a newer holder.
func (l *Locker) Release(ctx context.Context, billID snowflake.ID, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lockKey(billID)}, token).Err()
}

func lockKey(billID snowflake.ID) string {
	return fmt.Sprintf("tably:dispatch:%d", billID)
}
