// Package memstore provides an in-memory key-value store.
//
// Memstore stores, retrieves and deletes records keyed by a string. A
// record may carry an expiration time, and the store supports periodic
// cleanup of expired records.
//
// This package is suitable for tests and for single-process clients that
// do not need their cart or session to survive a restart.
package memstore

import (
	"sync"
	"time"
)

// Memstore is an in-memory storage for key-value records.
// It is safe for concurrent use by multiple goroutines.
type Memstore struct {
	records sync.Map
}

// record represents a single stored value and its expiration time. A zero
// expiresAt never expires.
type record struct {
	expiresAt time.Time
	data      []byte
}

func (r record) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && now.After(r.expiresAt)
}

// New creates and returns a new Memstore instance.
func New() *Memstore {
	return &Memstore{}
}

// Get retrieves the data stored under key. Returns the data, a boolean
// indicating whether the key was found and not expired, and an error. An
// expired record is deleted and reported as absent.
func (m *Memstore) Get(key string) ([]byte, bool, error) {
	r, ok := m.records.Load(key)

	if !ok {
		return []byte{}, false, nil
	}

	rec := r.(record)
	if rec.expired(time.Now()) {
		m.Delete(key)
		return []byte{}, false, nil
	}

	data := make([]byte, len(rec.data))
	copy(data, rec.data)
	return data, true, nil
}

// Set stores data under key until expiresAt, overwriting any previous
// record. A zero expiresAt keeps the record until it is deleted.
func (m *Memstore) Set(key string, data []byte, expiresAt time.Time) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.records.Store(key, record{expiresAt: expiresAt, data: buf})
	return nil
}

// Delete removes the record stored under key. If the key does not exist,
// this is a no-op.
func (m *Memstore) Delete(key string) error {
	m.records.Delete(key)
	return nil
}

// Count returns the number of records currently held, expired or not.
func (m *Memstore) Count() int {
	n := 0
	m.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
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
func (m *Memstore) PeriodicCleanUp(interval time.Duration, stop <-chan (struct{})) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.deleteExpired()
		case <-stop:
			return
		}
	}
}

// deleteExpired removes all expired records from the Memstore.
func (m *Memstore) deleteExpired() {
	now := time.Now()
	m.records.Range(func(key, value any) bool {
		if value.(record).expired(now) {
			m.Delete(key.(string))
		}
		return true
	})
}
