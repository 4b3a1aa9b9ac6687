package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pulsehq/pulse-ui-api/internal/authflow"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"pulse"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"pulse"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID   string `env:"USER_ID"   envDefault:"dev-user"`
	Email    string `env:"EMAIL"     envDefault:"dev@example.com"`
	Role     string `env:"ROLE"      envDefault:"admin"`
	TeamID   string `env:"TEAM_ID"   envDefault:""`
	TeamName string `env:"TEAM_NAME" envDefault:""`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// WaitBudget bounds the passive wait for a provider session during
	// sign-in completion. Clamped to the supported range at load.
	WaitBudget time.Duration `env:"AUTH_WAIT_BUDGET" envDefault:"10s"`

	// SessionTTL is the server-side session lifetime.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`

	// EmailRoleRules overrides the email-substring role heuristics.
	// Each entry is "substring=role"; setting any replaces the defaults.
	EmailRoleRules []string `env:"AUTH_EMAIL_ROLE_RULES" envSeparator:";"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.WaitBudget <= 0 {
		a.WaitBudget = authflow.DefaultWaitBudget
	}
	if a.WaitBudget < authflow.MinWaitBudget {
		a.WaitBudget = authflow.MinWaitBudget
	}
	if a.WaitBudget > authflow.MaxWaitBudget {
		a.WaitBudget = authflow.MaxWaitBudget
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 24 * time.Hour
	}
}
