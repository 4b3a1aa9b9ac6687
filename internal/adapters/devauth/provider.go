package devauth

// Package devauth provides a config-driven identity client for local
// development. It short-circuits the OAuth flow by redirecting straight back
// to our own callback with a placeholder code; exchanging any code signs in
// the configured user.

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// Config controls the dev identity client. UserID and Email are required.
type Config struct {
	UserID          string
	Email           string
	Role            string
	TeamID          string
	TeamName        string
	SessionDuration time.Duration // default 8h when zero
}

// Client implements ports.IdentityClient for local development.
type Client struct {
	user            domainauth.User
	sessionDuration time.Duration

	mu          sync.Mutex
	current     *domainauth.ProviderSession
	subscribers []chan ports.AuthEvent
}

var _ ports.IdentityClient = (*Client)(nil)

// NewClient constructs a dev identity client from Config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Client{
		user: domainauth.User{
			ID:    cfg.UserID,
			Email: cfg.Email,
			AppMetadata: domainauth.Metadata{
				Role:     cfg.Role,
				TeamID:   cfg.TeamID,
				TeamName: cfg.TeamName,
			},
		},
		sessionDuration: dur,
	}, nil
}

// SignInWithOAuth returns a local callback URL so no external provider is
// involved. The standard handler expects GET /auth/callback?code=...
func (c *Client) SignInWithOAuth(_ context.Context, in ports.OAuthSignInInput) (string, error) {
	authURL := "/auth/callback?code=dev"
	if in.RedirectURL != "" {
		authURL += "&redirect_uri=" + in.RedirectURL
	}
	return authURL, nil
}

// SignInWithOTP pretends to send a magic link; the dev user signs in through
// the normal callback regardless of the address given.
func (c *Client) SignInWithOTP(context.Context, ports.OTPSignInInput) error {
	return nil
}

// ExchangeCode ignores the code and signs in the configured user.
func (c *Client) ExchangeCode(_ context.Context, _ string) (*domainauth.ProviderSession, error) {
	return c.signIn(), nil
}

// SetSession accepts any token pair and signs in the configured user.
func (c *Client) SetSession(_ context.Context, _ ports.TokenPair) (*domainauth.ProviderSession, error) {
	return c.signIn(), nil
}

func (c *Client) GetSession(_ context.Context) (*domainauth.ProviderSession, error) {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()
	if sess == nil || sess.Expired() {
		return nil, nil
	}
	return sess, nil
}

func (c *Client) AuthStateChanges() (<-chan ports.AuthEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan ports.AuthEvent, 8)
	c.subscribers = append(c.subscribers, ch)

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.subscribers {
				if sub == ch {
					c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}
	return ch, release
}

func (c *Client) SignOut(context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.emit(ports.AuthEvent{Type: ports.AuthEventSignedOut})
	return nil
}

func (c *Client) signIn() *domainauth.ProviderSession {
	sess := &domainauth.ProviderSession{
		AccessToken:  "dev-access-token",
		RefreshToken: "dev-refresh-token",
		ExpiresAt:    time.Now().Add(c.sessionDuration),
		User:         c.user,
	}
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()
	c.emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: sess})
	return sess
}

func (c *Client) emit(ev ports.AuthEvent) {
	c.mu.Lock()
	subs := append([]chan ports.AuthEvent(nil), c.subscribers...)
	c.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- ev:
		default:
		}
	}
}
