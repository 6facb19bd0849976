package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"regverify/pkg/platform/sentinel"
)

const sessionKeyPrefix = "regverify:session:"

// RedisStore keeps sessions in Redis with a server-side TTL, so any instance
// behind the load balancer can consume a session another instance created.
// Redis expiry makes a vanished and an expired session indistinguishable; both
// surface as sentinel.ErrNotFound, which callers treat as SESSION_EXPIRED
// anyway.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, sess *VerificationSession) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*VerificationSession, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return unmarshalSession(payload)
}

// Take uses GETDEL so read-and-invalidate is a single atomic Redis command.
func (s *RedisStore) Take(ctx context.Context, id string) (*VerificationSession, error) {
	payload, err := s.client.GetDel(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take session: %w", err)
	}
	return unmarshalSession(payload)
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}
	return count, nil
}

func unmarshalSession(payload []byte) (*VerificationSession, error) {
	var sess VerificationSession
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}
