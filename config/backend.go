package config

import (
	"strings"
	"time"
)

// BackendConfig contains configuration for the optional backend HTTP service.
// Leaving BaseURL empty disables the backend; every consumer falls back to
// local behavior.
type BackendConfig struct {
	BaseURL string        `env:"BASE_URL"      envDefault:""`
	APIKey  string        `env:"API_KEY"       envDefault:""`
	Timeout time.Duration `env:"TIMEOUT"       envDefault:"10s"`

	// SummaryExpr is the JMESPath expression that extracts the summary text
	// from the backend's summarize response.
	SummaryExpr string `env:"SUMMARY_EXPR" envDefault:"summary"`
}

// Enabled reports whether a backend service is configured.
func (b *BackendConfig) Enabled() bool {
	return strings.TrimSpace(b.BaseURL) != ""
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimSpace(b.BaseURL)
	if b.Timeout <= 0 {
		b.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(b.SummaryExpr) == "" {
		b.SummaryExpr = "summary"
	}
}
