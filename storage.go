// Package storefront keeps a food-ordering client's cart, session and menu
// consistent with a local key-value store and a remote order service.
//
// The root package holds the persistence contract shared by every other
// package: a Store backend (see memstore, gormstore, redisstore and
// mysqlstore) wrapped by a Storage adapter that speaks string values the
// way browser local storage does.
//
// Usage:
//
//	store := memstore.New()
//	storage := storefront.NewStorage(store)
//
//	storage.Set(storefront.KeyCart, `{}`)
//	v, ok := storage.Get(storefront.KeyCart)
package storefront

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Keys of the records shared between the cart, session and menu components.
const (
	KeyAccessToken = "currentAccessToken"
	KeyCart        = "storedCart"
	KeyMenu        = "menu"
)

// Storage is a thin get/set/remove adapter over a Store. It never fails:
// backend errors are logged and reported as "key absent" on reads, so
// callers only ever see present or absent values. Every Set and Remove is
// immediately visible to subsequent Get calls on the same backend.
type Storage struct {
	store  Store
	logger zerolog.Logger
}

type config func(*Storage)

// WithLogger sets the logger used to report backend failures and corrupt
// records. (default no-op logger)
func WithLogger(logger zerolog.Logger) config {
	return config(func(s *Storage) {
		s.logger = logger
	})
}

// NewStorage returns a Storage backed by the given Store.
func NewStorage(store Store, cfgs ...config) *Storage {
	s := &Storage{
		store:  store,
		logger: zerolog.Nop(),
	}

	for _, cfg := range cfgs {
		cfg(s)
	}

	return s
}

// Get returns the value stored under key and whether it was present.
func (s *Storage) Get(key string) (string, bool) {
	data, found, err := s.store.Get(key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("storage get failed")
		return "", false
	}
	if !found {
		return "", false
	}
	return string(data), true
}

// Set stores value under key without expiry.
func (s *Storage) Set(key, value string) {
	s.SetWithExpiry(key, value, time.Time{})
}

// SetWithExpiry stores value under key until expiresAt. A zero expiresAt
// keeps the record until it is removed.
func (s *Storage) SetWithExpiry(key, value string, expiresAt time.Time) {
	if err := s.store.Set(key, []byte(value), expiresAt); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("storage set failed")
	}
}

// Remove deletes the record stored under key. Removing an absent key is a
// no-op.
func (s *Storage) Remove(key string) {
	if err := s.store.Delete(key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("storage remove failed")
	}
}

// GetJSON decodes the record stored under key into dst. It returns false
// when the record is absent or cannot be decoded; a corrupt record is
// treated as absent and left in place for the next writer to overwrite.
func (s *Storage) GetJSON(key string, dst any) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}

	if err := json.Unmarshal([]byte(v), dst); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt record treated as absent")
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func (s *Storage) SetJSON(key string, v any) {
	s.SetJSONWithExpiry(key, v, time.Time{})
}

// SetJSONWithExpiry encodes v and stores it under key until expiresAt.
func (s *Storage) SetJSONWithExpiry(key string, v any, expiresAt time.Time) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("storage encode failed")
		return
	}
	s.SetWithExpiry(key, string(data), expiresAt)
}
