package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const queueKeyPrefix = "notify:queue:"

// RedisQueue keeps each user's queue in a Redis list so pending
// notifications survive a daemon restart.
type RedisQueue struct {
	rdb      *redis.Client
	capacity int64
}

// NewRedis creates a Redis-backed queue bounded to capacity entries per user.
func NewRedis(rdb *redis.Client, capacity int) *RedisQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisQueue{rdb: rdb, capacity: int64(capacity)}
}

func queueKey(userID int64) string { return queueKeyPrefix + strconv.FormatInt(userID, 10) }

func (q *RedisQueue) Enqueue(ctx context.Context, userID int64, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := queueKey(userID)
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -q.capacity, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (q *RedisQueue) Drain(ctx context.Context, userID int64) ([]Notification, error) {
	key := queueKey(userID)
	var lrange *redis.StringSliceCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drain notifications: %w", err)
	}
	raw := lrange.Val()
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return out, fmt.Errorf("unmarshal notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
