// Package gormstore provides a gorm backed key-value store.
//
// GORMStore stores, retrieves and deletes records keyed by a string. Each
// record may carry an expiration time, and the store supports periodic
// cleanup of expired records. Backed by a sqlite file it is the on-disk
// counterpart of browser local storage: one database file holds one
// client's token, cart and menu across restarts.
package gormstore

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMStore is a gorm backed storage for key-value records.
type GORMStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// record is a single stored value. A nil ExpiresAt never expires.
type record struct {
	Name      string `gorm:"primaryKey;size:191"`
	Data      []byte
	ExpiresAt *time.Time `gorm:"index"`
}

func (record) TableName() string {
	return "local_storage"
}

type config func(*GORMStore)

// WithLogger sets the logger used by the periodic cleanup. (default no-op)
func WithLogger(logger zerolog.Logger) config {
	return config(func(s *GORMStore) {
		s.logger = logger
	})
}

// New creates and returns a new GORMStore instance.
// If the local_storage table doesn't exist it is created.
func New(db *gorm.DB, cfgs ...config) (*GORMStore, error) {
	s := &GORMStore{db: db, logger: zerolog.Nop()}
	for _, cfg := range cfgs {
		cfg(s)
	}
	return s, db.AutoMigrate(&record{})
}

// Get retrieves the data stored under key. Returns the data, a boolean
// indicating whether the key was found and not expired, and an error.
func (s *GORMStore) Get(key string) ([]byte, bool, error) {
	rec := &record{}
	tx := s.db.Where("name = ? AND (expires_at IS NULL OR expires_at >= ?)", key, time.Now()).Limit(1).Find(rec)
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, false, tx.Error
	}

	return rec.Data, true, nil
}

// Set stores data under key until expiresAt, overwriting any previous
// record. A zero expiresAt keeps the record until it is deleted.
func (s *GORMStore) Set(key string, data []byte, expiresAt time.Time) error {
	rec := &record{Name: key, Data: data}
	if !expiresAt.IsZero() {
		rec.ExpiresAt = &expiresAt
	}

	tx := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(rec)
	return tx.Error
}

// Delete removes the record stored under key.
func (s *GORMStore) Delete(key string) error {
	tx := s.db.Delete(&record{}, "name = ?", key)
	return tx.Error
}

// PeriodicCleanUp runs a loop that periodically deletes expired records.
// The cleanup runs every interval duration until a value is received on
// the stop channel, at which point the loop returns.
//
// Example usage:
//
//	stop := make(chan struct{})
//	go store.PeriodicCleanUp(time.Minute, stop)
//	...
//	close(stop) // stop the cleanup
func (s *GORMStore) PeriodicCleanUp(interval time.Duration, stop <-chan (struct{})) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-stop:
			return
		}
	}
}

// deleteExpired removes all expired records.
func (s *GORMStore) deleteExpired() {
	tx := s.db.Delete(&record{}, "expires_at IS NOT NULL AND expires_at < ?", time.Now())
	if tx.Error != nil {
		s.logger.Warn().Err(tx.Error).Msg("cleanup of expired records failed")
	}
}
