package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "intake:session:"

// RedisStore keeps sessions in Redis so several bot instances can share them.
// Keys expire after ttl; the machine's own expiry check still applies.
type RedisStore struct {
	Redis redis.Cmdable
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed session store. A zero ttl keeps keys forever.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{Redis: rdb, ttl: ttl}
}

func sessionKey(conversationID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(conversationID, 10)
}

func (s *RedisStore) Get(ctx context.Context, conversationID int64) (*Session, error) {
	data, err := s.Redis.Get(ctx, sessionKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %d: %w", conversationID, err)
	}
	return &sess, nil
}

func (s *RedisStore) Put(ctx context.Context, conversationID int64, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, sessionKey(conversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID int64) error {
	if err := s.Redis.Del(ctx, sessionKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
