package domain

import (
	"crypto/md5" //nolint:gosec // cache key only
	"encoding/hex"
	"errors"
	"strings"
)

// ErrCacheMiss is returned by a ResultCache when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// cacheKeyVersion invalidates every entry when bumped.
const cacheKeyVersion = "local_v1"

// CacheKey derives the cache key of one angle for a company and mode.
func CacheKey(company string, angle Angle, mode Mode) string {
	raw := strings.ToLower(strings.Join([]string{company, string(angle), string(mode), cacheKeyVersion}, "|"))
	sum := md5.Sum([]byte(raw)) //nolint:gosec // cache key only
	return hex.EncodeToString(sum[:])
}
