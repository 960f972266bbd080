package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the recurrence engine.
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences caps a single expansion as a guard against runaway
	// rules (e.g. a minutely complex rule over a year-long horizon).
	// Zero means no cap.
	MaxOccurrences int
}

// DefaultEngineConfig provides sensible defaults for production use.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
	MaxOccurrences: 10000,
}

// DisabledCacheConfig turns off expansion caching entirely.
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:   false,
	CacheConfig:    CacheConfig{}, // Not used
	MaxOccurrences: 10000,
}

// LowMemoryConfig is optimized for memory-constrained environments.
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
	MaxOccurrences: 10000,
}
