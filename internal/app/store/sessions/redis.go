package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "campusdesk:session:"

// Redis keeps sessions in Redis with a per-key TTL. It implements
// auth.SessionBackend.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ auth.SessionBackend = (*Redis)(nil)

// NewRedis wraps a go-redis client. An empty prefix uses DefaultRedisPrefix.
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (s *Redis) key(id string) string { return s.prefix + id }

// Load returns the data for a live session, or auth.ErrSessionNotFound.
func (s *Redis) Load(ctx context.Context, id string) (string, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", auth.ErrSessionNotFound
	}
	return data, err
}

// Save stores a session with a TTL ending at expiresAt.
func (s *Redis) Save(ctx context.Context, id, data string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, id)
	}
	return s.rdb.Set(ctx, s.key(id), data, ttl).Err()
}

// Delete removes a session.
func (s *Redis) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}
