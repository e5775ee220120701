package storefront

import "time"

// Store defines the interface for the key-value backends that play the
// role of browser-local storage. A Store persists raw bytes under a string
// key. Implementations may keep records in memory, in an embedded database,
// in a cache server, or in any other durable storage system.
type Store interface {
	// Get retrieves the data stored under the given key. It returns the
	// raw data, a boolean indicating whether the key was found, and an
	// error if the lookup failed.
	Get(key string) (data []byte, found bool, err error)

	// Set stores data under the given key. If a record with the same key
	// already exists, it is overwritten. A zero expiresAt means the record
	// never expires.
	Set(key string, data []byte, expiresAt time.Time) error

	// Delete removes the record stored under the given key. It should not
	// return an error if the key does not exist.
	Delete(key string) error
}
