package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: upstream OAuth client-credentials configuration
//   - redis.go: key-value store configuration
//   - http.go: HTTP server configuration
//   - upstream.go: learning-platform and inference API configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, relaxed
	// guardrails). Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication against the learning-platform APIs
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Key-value store configuration
	Redis RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Learning-platform API endpoints
	Platform PlatformConfig `envPrefix:"PLATFORM_"`

	// Inference API configuration
	Anthropic AnthropicConfig `envPrefix:"ANTHROPIC_"`

	// Background worker configuration
	Worker WorkerConfig `envPrefix:"WORKER_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Platform.Sanitize()
	c.Anthropic.Sanitize()
	c.Worker.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
