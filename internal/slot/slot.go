// Package slot provides the durable key/value slots every tracker component
// persists into. Values are stored as JSON; reads fall back to a caller
// supplied default when a slot is missing or unreadable.
package slot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrUnknownBackend is returned by Open for unsupported locations.
var ErrUnknownBackend = errors.New("slot: unknown backend")

// Store is a flat namespace of string keys holding serialized values.
// Implementations must be safe for concurrent use.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
	Close() error
}

// Get decodes the value stored under key, returning def when the key is
// absent, the backend fails, or the stored JSON does not decode into T.
func Get[T any](s Store, key string, def T) T {
	raw, ok, err := s.Load(key)
	if err != nil || !ok || len(raw) == 0 {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

// Set serializes v and writes it under key.
func Set[T any](s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", key, err)
	}
	if err := s.Save(key, data); err != nil {
		return fmt.Errorf("save slot %s: %w", key, err)
	}
	return nil
}

// Open picks a backend from a location string:
//
//	memory:                 in-process map
//	redis://host:port/db    redis, keys prefixed with "slot:"
//	anything else           SQLite database file at that path
func Open(location string) (Store, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, fmt.Errorf("%w: empty location", ErrUnknownBackend)
	case location == "memory:" || location == ":memory:":
		return NewMemory(), nil
	case strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://"):
		opt, err := redis.ParseURL(location)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedis(redis.NewClient(opt), DefaultRedisPrefix), nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, location)
	default:
		return OpenSQLite(location)
	}
}
