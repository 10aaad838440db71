package recurrence

import (
	"log/slog"
	"time"
)

// DefaultMaxOccurrences caps a single expansion, roughly two years of a daily rule
const DefaultMaxOccurrences = 730

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Safety cap on generated occurrences; values below 1 fall back to DefaultMaxOccurrences
	MaxOccurrences int

	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	Logger *slog.Logger
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	MaxOccurrences: DefaultMaxOccurrences,
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	MaxOccurrences: DefaultMaxOccurrences,
	CacheEnabled:   true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	MaxOccurrences: DefaultMaxOccurrences,
	CacheEnabled:   false,
}
