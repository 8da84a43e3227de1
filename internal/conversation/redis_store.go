package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type sessionKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(phone string) string
}

// RedisStore keeps sessions as JSON values whose TTL is refreshed on every
// save, so idle sessions expire without a sweep.
type RedisStore struct {
	kv      sessionKV
	idleTTL time.Duration
	now     func() time.Time
}

func NewRedisStore(kv sessionKV, idleTTL time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, errors.New("redis client is required")
	}
	if idleTTL <= 0 {
		return nil, errors.New("session idle ttl must be positive")
	}
	return &RedisStore{kv: kv, idleTTL: idleTTL, now: time.Now}, nil
}

func (r *RedisStore) Get(ctx context.Context, phone string) (*Session, error) {
	raw, err := r.kv.Get(ctx, r.kv.SessionKey(phone))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (r *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	stored := *sess
	stored.UpdatedAt = r.now()
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.kv.Set(ctx, r.kv.SessionKey(sess.Phone), string(payload), r.idleTTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, phone string) error {
	return r.kv.Del(ctx, r.kv.SessionKey(phone))
}

// Sweep is a no-op; Redis expires idle sessions itself.
func (r *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}
