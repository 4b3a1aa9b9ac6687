package oidc

// Package oidc implements the identity client over a standard OIDC/OAuth2
// provider. It owns the current provider session and fans auth-state events
// out to subscribers.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// ClientConfig holds configuration for the OIDC identity client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// Client implements ports.IdentityClient using OIDC discovery, the OAuth2
// authorization-code flow, and ID-token verification.
type Client struct {
	config     *oauth2.Config
	logoutURL  string
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu          sync.Mutex
	current     *domainauth.ProviderSession
	token       *oauth2.Token
	pending     map[string]pendingFlow
	subscribers []chan ports.AuthEvent
}

// pendingFlowTTL bounds how long an issued state stays redeemable.
const pendingFlowTTL = 10 * time.Minute

// pendingFlow records the state and nonce issued for one authorization
// redirect so the callback can be tied back to it.
type pendingFlow struct {
	nonce   string
	started time.Time
}

var _ ports.IdentityClient = (*Client)(nil)

// NewClient creates an OIDC identity client. Discovery is fetched once here.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{
		logoutURL:  cfg.LogoutURL,
		httpClient: httpClient,
		pending:    make(map[string]pendingFlow),
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	c.oidcProvider = op
	c.verifier = op.Verifier(&gooidc.Config{ClientID: cfg.ClientID})

	c.config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       strings.Fields(cfg.Scope),
		Endpoint:     op.Endpoint(),
	}

	return c, nil
}

// SignInWithOAuth builds the provider authorization URL for a redirect. The
// state and nonce are remembered so ExchangeCode can verify the callback.
func (c *Client) SignInWithOAuth(_ context.Context, in ports.OAuthSignInInput) (string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	c.rememberPending(state, nonce)

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	if in.Provider != "" {
		// Upstream social provider hint, e.g. "google" or "azure".
		opts = append(opts, oauth2.SetAuthURLParam("identity_provider", in.Provider))
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri_after", in.RedirectURL))
	}

	return c.config.AuthCodeURL(state, opts...), nil
}

// SignInWithOTP is not available on a plain OIDC provider.
func (c *Client) SignInWithOTP(context.Context, ports.OTPSignInInput) error {
	return apperrors.Validation("email sign-in is not supported by this identity provider")
}

// ExchangeCode trades the authorization code on the callback URL for tokens,
// verifies the ID token against the nonce issued at sign-in, and establishes
// the current session. The callback state must match one we issued; each
// state redeems at most once.
func (c *Client) ExchangeCode(ctx context.Context, rawURL string) (*domainauth.ProviderSession, error) {
	code, state, err := callbackParams(rawURL)
	if err != nil {
		return nil, err
	}
	flow, err := c.consumePending(state)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Network("exchange code for token", err)
	}

	user, err := c.userFromToken(ctx, token, flow.nonce)
	if err != nil {
		return nil, err
	}

	sess := sessionFromToken(token, user)
	c.setCurrent(sess, token)
	c.emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: sess})
	return sess, nil
}

// SetSession installs tokens obtained out of band (implicit grant fragment).
// The access token is validated through the userinfo endpoint.
func (c *Client) SetSession(ctx context.Context, tokens ports.TokenPair) (*domainauth.ProviderSession, error) {
	if tokens.AccessToken == "" {
		return nil, apperrors.Validation("access token is required")
	}

	token := &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Expiry:       time.Now().Add(time.Hour),
	}

	user, err := c.userFromUserInfo(ctx, token)
	if err != nil {
		return nil, apperrors.Network("validate access token", err)
	}

	sess := sessionFromToken(token, user)
	c.setCurrent(sess, token)
	c.emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: sess})
	return sess, nil
}

// GetSession returns the current session, refreshing it through the refresh
// token when expired. A nil session with nil error means signed out.
func (c *Client) GetSession(ctx context.Context) (*domainauth.ProviderSession, error) {
	c.mu.Lock()
	sess, token := c.current, c.token
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if !sess.Expired() {
		return sess, nil
	}
	if token == nil || token.RefreshToken == "" {
		return nil, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	fresh, err := c.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, apperrors.Network("refresh session", err)
	}

	refreshed := sessionFromToken(fresh, sess.User)
	c.setCurrent(refreshed, fresh)
	c.emit(ports.AuthEvent{Type: ports.AuthEventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

// AuthStateChanges subscribes to sign-in, refresh, and sign-out events. The
// release func is idempotent.
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

// SignOut drops the current session and notifies subscribers.
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.token = nil
	c.mu.Unlock()
	c.emit(ports.AuthEvent{Type: ports.AuthEventSignedOut})
	return nil
}

// LogoutURL is the provider's end-session endpoint, empty when unconfigured.
func (c *Client) LogoutURL() string { return c.logoutURL }

func (c *Client) setCurrent(sess *domainauth.ProviderSession, token *oauth2.Token) {
	c.mu.Lock()
	c.current = sess
	c.token = token
	c.mu.Unlock()
}

func (c *Client) emit(ev ports.AuthEvent) {
	c.mu.Lock()
	subs := append([]chan ports.AuthEvent(nil), c.subscribers...)
	c.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- ev:
		default:
			// A stalled subscriber must not block sign-in.
		}
	}
}

// metadataClaims is the nested metadata shape carried in tokens. app_metadata
// is provider-managed; user_metadata is user-editable.
type metadataClaims struct {
	Role     string `json:"role"`
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

type identityClaims struct {
	Sub          string         `json:"sub"`
	Email        string         `json:"email"`
	Mail         string         `json:"mail"`
	Nonce        string         `json:"nonce"`
	AppMetadata  metadataClaims `json:"app_metadata"`
	UserMetadata metadataClaims `json:"user_metadata"`
}

func (cl identityClaims) user() domainauth.User {
	return domainauth.User{
		ID:           cl.Sub,
		Email:        firstNonEmpty(cl.Email, cl.Mail),
		AppMetadata:  domainauth.Metadata(cl.AppMetadata),
		UserMetadata: domainauth.Metadata(cl.UserMetadata),
	}
}

// userFromToken extracts identity from the ID token when openid is in scope,
// falling back to the userinfo endpoint for missing fields. A non-empty
// expectedNonce must match the token's nonce claim.
func (c *Client) userFromToken(ctx context.Context, token *oauth2.Token, expectedNonce string) (domainauth.User, error) {
	var user domainauth.User

	if c.hasOpenIDScope() {
		rawID, err := idTokenFrom(token)
		if err != nil {
			return user, err
		}
		idTok, err := c.verifier.Verify(ctx, rawID)
		if err != nil {
			return user, fmt.Errorf("verify id_token: %w", err)
		}
		var claims identityClaims
		if claimsErr := idTok.Claims(&claims); claimsErr != nil {
			return user, fmt.Errorf("parse id_token claims: %w", claimsErr)
		}
		if nonceErr := checkNonce(claims.Nonce, expectedNonce); nonceErr != nil {
			return user, nonceErr
		}
		user = claims.user()
	}

	if user.ID != "" && user.Email != "" {
		return user, nil
	}
	filled, err := c.userFromUserInfo(ctx, token)
	if err != nil {
		return user, fmt.Errorf("get user info: %w", err)
	}
	return mergeUsers(user, filled), nil
}

func (c *Client) userFromUserInfo(ctx context.Context, token *oauth2.Token) (domainauth.User, error) {
	ui, err := c.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return domainauth.User{}, fmt.Errorf("fetch user info: %w", err)
	}
	var claims identityClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return domainauth.User{}, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return claims.user(), nil
}

// mergeUsers fills empty fields of a from b.
func mergeUsers(a, b domainauth.User) domainauth.User {
	if a.ID == "" {
		a.ID = b.ID
	}
	if a.Email == "" {
		a.Email = b.Email
	}
	if a.AppMetadata == (domainauth.Metadata{}) {
		a.AppMetadata = b.AppMetadata
	}
	if a.UserMetadata == (domainauth.Metadata{}) {
		a.UserMetadata = b.UserMetadata
	}
	return a
}

func sessionFromToken(token *oauth2.Token, user domainauth.User) *domainauth.ProviderSession {
	expiresAt := time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}
	return &domainauth.ProviderSession{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}
}

// rememberPending records an issued state and its nonce, dropping entries
// that have aged past the redemption window.
func (c *Client) rememberPending(state, nonce string) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for s, flow := range c.pending {
		if now.Sub(flow.started) > pendingFlowTTL {
			delete(c.pending, s)
		}
	}
	c.pending[state] = pendingFlow{nonce: nonce, started: now}
}

// consumePending retires the callback state. A state we never issued, or one
// past its window, is rejected.
func (c *Client) consumePending(state string) (pendingFlow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	flow, ok := c.pending[state]
	if !ok {
		return pendingFlow{}, apperrors.AccessDenied("sign-in state is not recognized")
	}
	delete(c.pending, state)
	if time.Since(flow.started) > pendingFlowTTL {
		return pendingFlow{}, apperrors.AccessDenied("sign-in state has expired")
	}
	return flow, nil
}

func checkNonce(got, want string) error {
	if want != "" && got != want {
		return apperrors.AccessDenied("id token nonce does not match the sign-in request")
	}
	return nil
}

// callbackParams pulls the authorization code and state off the callback URL.
func callbackParams(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", apperrors.Validation("invalid callback URL")
	}
	q := u.Query()
	code := q.Get("code")
	if code == "" {
		return "", "", apperrors.Validation("authorization code is required")
	}
	state := q.Get("state")
	if state == "" {
		return "", "", apperrors.Validation("state parameter is required")
	}
	return code, state, nil
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

func (c *Client) hasOpenIDScope() bool {
	for _, sc := range c.config.Scopes {
		if sc == "openid" {
			return true
		}
	}
	return false
}

func idTokenFrom(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
