package presence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix  = "presence:user:"
	focusKeyPrefix = "presence:focus:"
	ownerKeyPrefix = "presence:owner:"
)

// RedisRegistry keeps presence in Redis so several processes can share one
// authority. Multi-key updates run in MULTI/EXEC transactions.
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func userKey(userID int64) string      { return userKeyPrefix + strconv.FormatInt(userID, 10) }
func focusKey(sessionID string) string { return focusKeyPrefix + sessionID }
func ownerKey(sessionID string) string { return ownerKeyPrefix + sessionID }

func (r *RedisRegistry) Register(ctx context.Context, userID int64, sessionID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, userKey(userID), sessionID)
		pipe.Set(ctx, ownerKey(sessionID), userID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Unregister(ctx context.Context, userID int64, sessionID string) error {
	// SREM on the last member deletes the set, which is what takes the user offline.
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, userKey(userID), sessionID)
		pipe.Del(ctx, focusKey(sessionID), ownerKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("unregister session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) SetFocus(ctx context.Context, sessionID string, roomID int64) error {
	n, err := r.rdb.Exists(ctx, ownerKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if n == 0 {
		return ErrUnknownSession
	}
	if err := r.rdb.Set(ctx, focusKey(sessionID), roomID, 0).Err(); err != nil {
		return fmt.Errorf("set focus: %w", err)
	}
	return nil
}

func (r *RedisRegistry) ClearFocus(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, focusKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear focus: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Focus(ctx context.Context, sessionID string) (int64, bool, error) {
	roomID, err := r.rdb.Get(ctx, focusKey(sessionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get focus: %w", err)
	}
	return roomID, true, nil
}

func (r *RedisRegistry) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := r.rdb.SCard(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) IsViewing(ctx context.Context, userID, roomID int64) (bool, error) {
	ids, err := r.Viewers(ctx, userID, roomID)
	return len(ids) > 0, err
}

func (r *RedisRegistry) Viewers(ctx context.Context, userID, roomID int64) ([]string, error) {
	sessions, err := r.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	keys := make([]string, len(sessions))
	for i, sid := range sessions {
		keys[i] = focusKey(sid)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get focus: %w", err)
	}
	want := strconv.FormatInt(roomID, 10)
	var ids []string
	for i, v := range vals {
		if s, ok := v.(string); ok && s == want {
			ids = append(ids, sessions[i])
		}
	}
	return ids, nil
}
