// Package cache provides a small TTL cache used for memoizing sentence
// embeddings. Entries are shared across goroutines under a read-through
// policy: missers compute and insert, racers tolerate duplicate work.
package cache

import "time"

// Cache is the interface for the process-local cache.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL. Returns false when the
	// value was dropped by admission policy.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Close releases cache resources.
	Close()
}
