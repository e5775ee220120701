// Package redisstore provides a redis backed key-value store.
//
// RedisStore stores, retrieves and deletes records keyed by a string.
// Expiration is delegated to redis key TTLs. An optional key prefix lets
// several clients share one redis database, each with its own cart,
// token and menu records.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a redis backed storage for key-value records.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type config func(*RedisStore)

// WithPrefix namespaces every key, e.g. "client:42:". (default "")
func WithPrefix(prefix string) config {
	return config(func(s *RedisStore) {
		s.prefix = prefix
	})
}

// New creates and returns a new RedisStore instance.
func New(rdb *redis.Client, cfgs ...config) *RedisStore {
	s := &RedisStore{rdb: rdb}
	for _, cfg := range cfgs {
		cfg(s)
	}
	return s
}

// Get retrieves the data stored under key. Returns the data, a boolean
// indicating whether the key was found and not expired, and an error.
func (s *RedisStore) Get(key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(context.Background(), s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []byte{}, false, nil
		}
		return []byte{}, false, err
	}

	return data, true, nil
}

// Set stores data under key until expiresAt, overwriting any previous
// record. A zero expiresAt stores the record without a TTL. An expiresAt in
// the past removes the record.
func (s *RedisStore) Set(key string, data []byte, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return s.Delete(key)
		}
	}
	return s.rdb.Set(context.Background(), s.prefix+key, data, ttl).Err()
}

// Delete removes the record stored under key. If the key does not exist,
// this is a no-op.
func (s *RedisStore) Delete(key string) error {
	return s.rdb.Del(context.Background(), s.prefix+key).Err()
}
