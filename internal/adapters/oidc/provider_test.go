package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

type discoveryDoc struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	issuer := ""
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := discoveryDoc{
			Issuer:                issuer,
			AuthorizationEndpoint: "https://example.com/auth",
			TokenEndpoint:         "https://example.com/token",
			UserinfoEndpoint:      "https://example.com/userinfo",
			JwksURI:               "https://example.com/jwks",
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	issuer = server.URL
	return server
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server := newDiscoveryServer(t)
	client, err := NewClient(ClientConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        "openid profile email",
		DiscoveryURL: server.URL,
		LogoutURL:    "https://example.com/logout",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Success(t *testing.T) {
	client := newTestClient(t)
	assert.Equal(t, "https://example.com/auth", client.config.Endpoint.AuthURL)
	assert.Equal(t, "https://example.com/token", client.config.Endpoint.TokenURL)
	assert.Equal(t, "https://example.com/logout", client.LogoutURL())
}

func TestNewClient_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ClientConfig
		errMsg string
	}{
		{
			name: "missing client ID",
			config: ClientConfig{
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client ID is required",
		},
		{
			name: "missing client secret",
			config: ClientConfig{
				ClientID:     "client",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client secret is required",
		},
		{
			name: "missing redirect URL",
			config: ClientConfig{
				ClientID:     "client",
				ClientSecret: "secret",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "redirect URL is required",
		},
		{
			name: "missing discovery URL",
			config: ClientConfig{
				ClientID:     "client",
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
			},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSignInWithOAuth_URLContents(t *testing.T) {
	client := newTestClient(t)

	authURL, err := client.SignInWithOAuth(context.Background(), ports.OAuthSignInInput{
		Provider:    "google",
		RedirectURL: "/reports",
	})
	require.NoError(t, err)

	assert.Contains(t, authURL, "https://example.com/auth")
	assert.Contains(t, authURL, "client_id=test-client")
	assert.Contains(t, authURL, "state=")
	assert.Contains(t, authURL, "nonce=")
	assert.Contains(t, authURL, "identity_provider=google")
	assert.Contains(t, authURL, "prompt=select_account")
}

func TestSignInWithOAuth_DistinctStatePerCall(t *testing.T) {
	client := newTestClient(t)

	first, err := client.SignInWithOAuth(context.Background(), ports.OAuthSignInInput{})
	require.NoError(t, err)
	second, err := client.SignInWithOAuth(context.Background(), ports.OAuthSignInInput{})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSignInWithOTP_Unsupported(t *testing.T) {
	client := newTestClient(t)
	err := client.SignInWithOTP(context.Background(), ports.OTPSignInInput{Email: "a@b.c"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestExchangeCode_RequiresCode(t *testing.T) {
	client := newTestClient(t)

	_, err := client.ExchangeCode(context.Background(), "https://app/cb?state=xyz")
	assert.True(t, apperrors.IsValidation(err))

	_, err = client.ExchangeCode(context.Background(), "://bad")
	assert.True(t, apperrors.IsValidation(err))
}

func TestExchangeCode_RequiresState(t *testing.T) {
	client := newTestClient(t)

	_, err := client.ExchangeCode(context.Background(), "https://app/cb?code=abc")
	assert.True(t, apperrors.IsValidation(err))
}

func TestExchangeCode_RejectsUnknownState(t *testing.T) {
	client := newTestClient(t)

	_, err := client.ExchangeCode(context.Background(), "https://app/cb?code=abc&state=forged")
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestExchangeCode_RejectsExpiredState(t *testing.T) {
	client := newTestClient(t)
	client.mu.Lock()
	client.pending["stale"] = pendingFlow{nonce: "n", started: time.Now().Add(-pendingFlowTTL - time.Minute)}
	client.mu.Unlock()

	_, err := client.ExchangeCode(context.Background(), "https://app/cb?code=abc&state=stale")
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestSignInWithOAuth_StateRedeemsOnce(t *testing.T) {
	client := newTestClient(t)

	authURL, err := client.SignInWithOAuth(context.Background(), ports.OAuthSignInInput{})
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	nonce := parsed.Query().Get("nonce")
	require.NotEmpty(t, state)
	require.NotEmpty(t, nonce)

	// The remembered flow carries the nonce from the authorization URL.
	flow, err := client.consumePending(state)
	require.NoError(t, err)
	assert.Equal(t, nonce, flow.nonce)

	// A second redemption of the same state is rejected.
	_, err = client.consumePending(state)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestCheckNonce(t *testing.T) {
	assert.NoError(t, checkNonce("n1", "n1"))
	assert.NoError(t, checkNonce("anything", ""))
	assert.True(t, apperrors.IsAccessDenied(checkNonce("n1", "n2")))
	assert.True(t, apperrors.IsAccessDenied(checkNonce("", "n2")))
}

func TestSetSession_RequiresAccessToken(t *testing.T) {
	client := newTestClient(t)
	_, err := client.SetSession(context.Background(), ports.TokenPair{RefreshToken: "r"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetSession_NilWhenSignedOut(t *testing.T) {
	client := newTestClient(t)
	sess, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetSession_ExpiredWithoutRefreshTokenIsSignedOut(t *testing.T) {
	client := newTestClient(t)
	client.setCurrent(&domainauth.ProviderSession{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}, nil)

	sess, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignOut_EmitsEventAndClearsSession(t *testing.T) {
	client := newTestClient(t)
	client.setCurrent(&domainauth.ProviderSession{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil)

	events, release := client.AuthStateChanges()
	defer release()

	require.NoError(t, client.SignOut(context.Background()))

	select {
	case ev := <-events:
		assert.Equal(t, ports.AuthEventSignedOut, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no sign-out event")
	}

	sess, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestAuthStateChanges_ReleaseIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	_, release := client.AuthStateChanges()
	release()
	release()

	// A later emit must not panic on the closed channel.
	client.emit(ports.AuthEvent{Type: ports.AuthEventSignedIn})
}

func TestIdentityClaims_UserMapping(t *testing.T) {
	claims := identityClaims{
		Sub:  "u1",
		Mail: "fallback@example.com",
		AppMetadata: metadataClaims{
			Role:   "manager",
			TeamID: "t1",
		},
		UserMetadata: metadataClaims{TeamName: "Platform"},
	}

	user := claims.user()
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "fallback@example.com", user.Email)
	assert.Equal(t, "manager", user.AppMetadata.Role)
	assert.Equal(t, "t1", user.AppMetadata.TeamID)
	assert.Equal(t, "Platform", user.UserMetadata.TeamName)
}

func TestMergeUsers(t *testing.T) {
	a := domainauth.User{ID: "u1"}
	b := domainauth.User{
		ID:          "ignored",
		Email:       "from-userinfo@example.com",
		AppMetadata: domainauth.Metadata{Role: "admin"},
	}

	merged := mergeUsers(a, b)
	assert.Equal(t, "u1", merged.ID)
	assert.Equal(t, "from-userinfo@example.com", merged.Email)
	assert.Equal(t, "admin", merged.AppMetadata.Role)
}
