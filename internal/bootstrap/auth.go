package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pulsehq/pulse-ui-api/config"
	"github.com/pulsehq/pulse-ui-api/internal/adapters/devauth"
	"github.com/pulsehq/pulse-ui-api/internal/adapters/oidc"
	redisadapter "github.com/pulsehq/pulse-ui-api/internal/adapters/redis"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
	"github.com/pulsehq/pulse-ui-api/internal/resolve"
)

// AuthConfig contains configuration for identity and session wiring.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildIdentityClient creates an identity client based on the configured auth
// mode. Returns nil when the provider is not configured; the sign-in machine
// maps that to its config-missing state.
//
//nolint:ireturn // the concrete client depends on the configured auth mode.
func BuildIdentityClient(cfg AuthConfig) ports.IdentityClient {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevIdentityClient(cfg)
	case config.AuthModeOAuth:
		return buildOIDCIdentityClient(cfg)
	default:
		return nil
	}
}

func buildDevIdentityClient(cfg AuthConfig) ports.IdentityClient {
	client, err := devauth.NewClient(devauth.Config{
		UserID:   cfg.Auth.DevAuth.UserID,
		Email:    cfg.Auth.DevAuth.Email,
		Role:     cfg.Auth.DevAuth.Role,
		TeamID:   cfg.Auth.DevAuth.TeamID,
		TeamName: cfg.Auth.DevAuth.TeamName,
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create dev auth client, auth disabled", "error", err)
		}
		return nil
	}
	return client
}

func buildOIDCIdentityClient(cfg AuthConfig) ports.IdentityClient {
	// Only enable when fully configured
	oauth := cfg.Auth.OAuth
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		if cfg.Logger != nil {
			cfg.Logger.Warn("AuthModeOAuth selected but required config missing; auth disabled",
				"discovery_url_empty", oauth.DiscoveryURL == "",
				"client_id_empty", oauth.ClientID == "",
				"client_secret_empty", oauth.ClientSecret == "",
			)
		}
		return nil
	}

	client, err := oidc.NewClient(oidc.ClientConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create OIDC client, auth disabled", "error", err)
		}
		return nil
	}
	return client
}

// BuildSessionStore creates the Redis-backed server session store.
func BuildSessionStore(client redis.UniversalClient) *redisadapter.SessionStore {
	return redisadapter.NewSessionStoreWithPrefix(client, "session:")
}

// ParseEmailRules converts "substring=role" config entries into resolver
// rules. An empty list selects the built-in defaults.
func ParseEmailRules(raw []string) ([]resolve.EmailRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	rules := make([]resolve.EmailRule, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		substring, rawRole, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("invalid email role rule %q (expected substring=role)", entry)
		}
		role, ok := domainauth.ParseRole(rawRole)
		if !ok {
			return nil, fmt.Errorf("invalid role %q in email role rule %q", rawRole, entry)
		}
		substring = strings.TrimSpace(substring)
		if substring == "" {
			return nil, fmt.Errorf("empty substring in email role rule %q", entry)
		}
		rules = append(rules, resolve.EmailRule{Substring: substring, Role: role})
	}
	return rules, nil
}
