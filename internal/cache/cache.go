// Package cache defines the result cache shared by the import and list
// operations. Entries live until their TTL expires; there is no
// per-entry override and no read-side refresh.
package cache

import "time"

type Interface interface {
	// Get returns the cached payload for key, or ok=false on a miss.
	// A store failure is returned as an error, never masked as a miss.
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte, ttl time.Duration) error
	// FlushPrefix drops every entry whose key starts with prefix.
	FlushPrefix(prefix string) error
}
