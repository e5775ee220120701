// Package mysqlstore provides a MySQL/MariaDB backed key-value store.
//
// MySQLStore stores, retrieves and deletes records keyed by a string. Each
// record may carry an expiration time, and the store supports periodic
// cleanup of expired records.
package mysqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type MySQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

type config func(*MySQLStore)

// WithLogger sets the logger used by the periodic cleanup. (default no-op)
func WithLogger(logger zerolog.Logger) config {
	return config(func(s *MySQLStore) {
		s.logger = logger
	})
}

func New(db *sql.DB, cfgs ...config) (*MySQLStore, error) {
	s := &MySQLStore{db: db, logger: zerolog.Nop()}
	for _, cfg := range cfgs {
		cfg(s)
	}
	return s, createTable(db)
}

// Get retrieves the data stored under key. Returns the data, a boolean
// indicating whether the key was found and not expired, and an error.
func (s *MySQLStore) Get(key string) ([]byte, bool, error) {
	stmt := "SELECT data FROM local_storage WHERE name = ? AND (expires_at IS NULL OR UTC_TIMESTAMP(6) < expires_at)"
	row := s.db.QueryRow(stmt, key)

	var data []byte
	err := row.Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores data under key until expiresAt, overwriting any previous
// record. A zero expiresAt keeps the record until it is deleted.
func (s *MySQLStore) Set(key string, data []byte, expiresAt time.Time) error {
	var expires sql.NullTime
	if !expiresAt.IsZero() {
		expires = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	stmt := "INSERT INTO local_storage(name, data, expires_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data), expires_at = VALUES(expires_at)"
	_, err := s.db.Exec(stmt, key, data, expires)
	return err
}

// Delete removes the record stored under key.
func (s *MySQLStore) Delete(key string) error {
	stmt := "DELETE FROM local_storage WHERE name = ?"
	_, err := s.db.Exec(stmt, key)
	return err
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
func (s *MySQLStore) PeriodicCleanUp(interval time.Duration, stop <-chan (struct{})) {
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
func (s *MySQLStore) deleteExpired() {
	stmt := "DELETE FROM local_storage WHERE expires_at IS NOT NULL AND UTC_TIMESTAMP(6) > expires_at"
	if _, err := s.db.Exec(stmt); err != nil {
		s.logger.Warn().Err(err).Msg("cleanup of expired records failed")
	}
}

func createTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS local_storage (
			name VARCHAR(191) COLLATE utf8mb4_bin PRIMARY KEY,
			data LONGBLOB NOT NULL,
			expires_at TIMESTAMP(6) NULL DEFAULT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS local_storage_expires_at_idx ON local_storage (expires_at)`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}
