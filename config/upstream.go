package config

import (
	"strings"
	"time"
)

// PlatformConfig contains the learning-platform API endpoints. The three
// APIs often share one host; each base URL is still configured separately
// so split deployments work.
type PlatformConfig struct {
	OneRosterBaseURL string `env:"ONEROSTER_BASE_URL" envDefault:"http://localhost:3000"`
	PowerPathBaseURL string `env:"POWERPATH_BASE_URL" envDefault:"http://localhost:3000"`
	QTIBaseURL       string `env:"QTI_BASE_URL"       envDefault:"http://localhost:3000"`

	// Timeout applies to every platform HTTP request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// Sanitize normalises URL values and enforces a positive timeout.
func (p *PlatformConfig) Sanitize() {
	p.OneRosterBaseURL = strings.TrimRight(strings.TrimSpace(p.OneRosterBaseURL), "/")
	p.PowerPathBaseURL = strings.TrimRight(strings.TrimSpace(p.PowerPathBaseURL), "/")
	p.QTIBaseURL = strings.TrimRight(strings.TrimSpace(p.QTIBaseURL), "/")
	if p.Timeout <= 0 {
		p.Timeout = 60 * time.Second
	}
}

// AnthropicConfig contains inference API configuration.
type AnthropicConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL" envDefault:"https://api.anthropic.com"`

	// Model and MaxTokens are the generation defaults applied when a
	// feature does not override them.
	Model     string `env:"MODEL"      envDefault:"claude-sonnet-4-20250514"`
	MaxTokens int    `env:"MAX_TOKENS" envDefault:"4096"`

	// Timeout applies per request; batch polling uses many short requests
	// rather than one long-lived one.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"120s"`
}

// Sanitize applies guardrails to inference configuration values.
func (a *AnthropicConfig) Sanitize() {
	a.APIKey = strings.TrimSpace(a.APIKey)
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.MaxTokens <= 0 {
		a.MaxTokens = 4096
	}
	if a.Timeout <= 0 {
		a.Timeout = 120 * time.Second
	}
}

// WorkerConfig contains background task runner configuration.
type WorkerConfig struct {
	// Limit bounds the number of concurrently running background tasks.
	Limit int `env:"LIMIT" envDefault:"8"`

	// TaskTimeout bounds each task's run time.
	TaskTimeout time.Duration `env:"TASK_TIMEOUT" envDefault:"1h"`
}

// Sanitize clamps worker configuration to sane values.
func (w *WorkerConfig) Sanitize() {
	if w.Limit <= 0 {
		w.Limit = 8
	}
	if w.TaskTimeout <= 0 {
		w.TaskTimeout = time.Hour
	}
}
