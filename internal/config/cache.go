package config

import "time"

// CacheConfig defines settings for the seat-map response cache.  When
// Enabled is false or no Redis client is configured, caching is
// disabled.  TTL is kept short: the seat map is a live view and a stale
// entry only delays, never breaks, the allocation checks that run at
// checkout.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
    }
}
