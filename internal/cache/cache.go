package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Cache stores serialized verdicts by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "claimcheck:v1:"

// CacheKey derives a stable key from the parts of a request.
// Parts are NUL-separated so ("ab", "c") and ("a", "bc") differ.
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by config, or nil when caching is disabled.
// Without a directory only the memory layer is used.
func New(config model.CacheConfig) Cache {
	if !config.Enabled {
		return nil
	}
	if config.Dir == "" {
		return NewMemoryCache(config.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(config.MemoryTTL, config.Dir, config.DiskTTL)
}
