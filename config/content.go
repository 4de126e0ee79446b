package config

import "time"

// ContentConfig contains hosted content API configuration.
type ContentConfig struct {
	// BaseURL is the root of the content API. Defaults to the identity
	// provider's host; the hosted CMS serves both from one origin.
	BaseURL string `env:"CONTENT_BASE_URL" envDefault:"http://localhost:1337"`

	// RequestTimeout bounds content API calls.
	RequestTimeout time.Duration `env:"CONTENT_REQUEST_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to content configuration values.
func (c *ContentConfig) Sanitize() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

// CacheConfig contains cache configuration (Redis-based).
type CacheConfig struct {
	// Enabled toggles the content cache. When disabled, content reads go
	// straight to the content API.
	Enabled bool `env:"CACHE_ENABLED" envDefault:"false"`

	// Redis connection settings for cache.
	RedisAddr     string `env:"CACHE_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"CACHE_REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"CACHE_REDIS_DB"       envDefault:"0"`

	// ContentTTL is the TTL for cached public content pages.
	ContentTTL time.Duration `env:"CACHE_CONTENT_TTL" envDefault:"5m"`
}
