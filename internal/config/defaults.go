package config

// Server defaults
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Engine defaults
const (
	DefaultEngineDefault          = "gpt-4o-mini"
	DefaultEngineFallback         = "claude-sonnet"
	DefaultEngineEmbedding        = ""
	DefaultEngineFallbackAttempts = 2
)

// Gateway call policy defaults
const (
	DefaultCallMaxAttempts = 3
	DefaultCallTimeout     = "90s"
	DefaultCallBaseDelay   = "2s"
	DefaultCallMaxDelay    = "30s"
	DefaultCallMultiplier  = 2.0
)

// Classification defaults
const (
	DefaultClassifyMaxExcerptChars = 2000
	DefaultClassifyDeepDiveMax     = 5
	DefaultClassifyMaxTokens       = 4096
)

// Lock defaults
const (
	DefaultLockFlockRetry    = "50ms"
	DefaultLockFlockMaxRetry = 40
	DefaultLockStaleAfter    = "24h"
)

// Janitor defaults
const (
	DefaultJanitorEnabled  = true
	DefaultJanitorSchedule = "@every 15m"
)
