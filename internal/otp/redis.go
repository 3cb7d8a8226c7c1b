package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the OTP table with Redis so multiple instances share
// one pending code per phone. Key TTL covers the full rate window, so no
// sweep is needed.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func entryKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

func (s *RedisStore) Get(ctx context.Context, phone string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, entryKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *RedisStore) Set(ctx context.Context, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ttl := time.Until(entry.ExpiresAt) + rateWindow
	if ttl <= 0 {
		ttl = rateWindow
	}
	return s.client.Set(ctx, entryKey(entry.Phone), raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, entryKey(phone)).Err()
}
