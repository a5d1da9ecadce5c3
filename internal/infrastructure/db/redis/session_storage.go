package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marketplace/storefront/internal/core/session"
)

// SessionStorage keeps each visitor's session under two keys:
//
//	storefront:session:<sid>:access_token  sealed token
//	storefront:session:<sid>:user          JSON profile
//
// Every write runs in a MULTI/EXEC pipeline and refreshes the TTL.
type SessionStorage struct {
	client *redis.Client
	ttl    time.Duration
}

var _ session.Storage = (*SessionStorage)(nil)

func NewSessionStorage(client *redis.Client, ttl time.Duration) *SessionStorage {
	return &SessionStorage{client: client, ttl: ttl}
}

func (s *SessionStorage) Load(ctx context.Context, sid string) (session.Record, error) {
	vals, err := s.client.MGet(ctx, tokenKey(sid), userKey(sid)).Result()
	if err != nil {
		return session.Record{}, fmt.Errorf("session load: %w", err)
	}
	var rec session.Record
	if v, ok := vals[0].(string); ok {
		rec.Token = v
	}
	if v, ok := vals[1].(string); ok {
		rec.User = []byte(v)
	}
	return rec, nil
}

func (s *SessionStorage) SaveToken(ctx context.Context, sid, sealedToken string) error {
	return s.save(ctx, tokenKey(sid), userKey(sid), sealedToken)
}

func (s *SessionStorage) SaveUser(ctx context.Context, sid string, user []byte) error {
	return s.save(ctx, userKey(sid), tokenKey(sid), string(user))
}

// save writes or deletes key and keeps sibling on the same expiry.
func (s *SessionStorage) save(ctx context.Context, key, sibling, value string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if value == "" {
			pipe.Del(ctx, key)
			return nil
		}
		pipe.Set(ctx, key, value, s.ttl)
		if s.ttl > 0 {
			pipe.Expire(ctx, sibling, s.ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session save %s: %w", key, err)
	}
	return nil
}

func (s *SessionStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func tokenKey(sid string) string { return fmt.Sprintf("storefront:session:%s:access_token", sid) }
func userKey(sid string) string  { return fmt.Sprintf("storefront:session:%s:user", sid) }
