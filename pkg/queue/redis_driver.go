package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

const (
	redisQueueKey   = "tagcatalog:queue:jobs"
	redisDelayedKey = "tagcatalog:queue:delayed"
)

// promoteScript moves one delayed job onto the list only if this caller
// removed it, so concurrent promoters never enqueue it twice.
var promoteScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 1 then
	redis.call("LPUSH", KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// RedisDriver is a durable queue driver. Immediate jobs use LPUSH/BRPOP on a
// list; delayed jobs wait in a sorted set scored by Unix time.
type RedisDriver struct {
	rdb        *redis.Client
	queueKey   string
	delayedKey string
}

// NewRedisDriver creates a Redis-backed driver on the client used by
// pkg/cache. Call Promote in a goroutine to move due delayed jobs.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, queueKey: redisQueueKey, delayedKey: redisDelayedKey}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.queueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop blocks for up to five seconds waiting for a job.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, 5*time.Second, d.queueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	runAt := float64(time.Now().Add(delay).Unix())
	if err := d.rdb.ZAdd(ctx, d.delayedKey, redis.Z{
		Score:  runAt,
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// Promote moves due delayed jobs into the main list once a second until ctx
// is cancelled. Several workers may run it at once.
func (d *RedisDriver) Promote(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := d.promoteDue(ctx, now); err != nil && ctx.Err() == nil {
				logger.Warn("queue/redis: promote delayed", "error", err)
			}
		}
	}
}

// promoteDue moves every delayed job due at now and returns how many this
// call moved.
func (d *RedisDriver) promoteDue(ctx context.Context, now time.Time) (int, error) {
	jobs, err := d.rdb.ZRangeByScore(ctx, d.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, job := range jobs {
		n, err := promoteScript.Run(ctx, d.rdb, []string{d.delayedKey, d.queueKey}, job).Int()
		if err != nil {
			return moved, err
		}
		moved += n
	}
	return moved, nil
}
