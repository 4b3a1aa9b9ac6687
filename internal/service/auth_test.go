package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse-ui-api/internal/authflow"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	mocksauth "github.com/pulsehq/pulse-ui-api/internal/mocks/auth"
	"github.com/pulsehq/pulse-ui-api/internal/resolve"
)

func testProviderSession(role, teamID, teamName string) *domainauth.ProviderSession {
	return &domainauth.ProviderSession{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		User: domainauth.User{
			ID:    "user-1",
			Email: "user@example.com",
			AppMetadata: domainauth.Metadata{
				Role:     role,
				TeamID:   teamID,
				TeamName: teamName,
			},
		},
	}
}

func newAuthService(identity *mocksauth.ScriptedIdentityClient, sessions *mocksauth.MemorySessionStore) *AuthService {
	var opts AuthServiceOptions
	if identity != nil {
		opts.Identity = identity
	}
	opts.Sessions = sessions
	opts.Resolver = resolve.NewResolver(resolve.ResolverOptions{
		Profiles: &mocksauth.MemoryProfileStore{},
	})
	opts.WaitBudget = 20 * time.Millisecond
	return NewAuthService(opts)
}

func TestBeginOAuth(t *testing.T) {
	identity := mocksauth.NewScriptedIdentityClient()
	svc := newAuthService(identity, mocksauth.NewMemorySessionStore())

	url, err := svc.BeginOAuth(context.Background(), "okta", "https://app/dashboard")
	require.NoError(t, err)
	assert.Contains(t, url, "okta")
}

func TestBeginOAuth_NoIdentityClient(t *testing.T) {
	svc := newAuthService(nil, mocksauth.NewMemorySessionStore())

	_, err := svc.BeginOAuth(context.Background(), "okta", "")
	assert.True(t, apperrors.IsConfigMissing(err))
}

func TestBeginOTP_RequiresEmail(t *testing.T) {
	svc := newAuthService(mocksauth.NewScriptedIdentityClient(), mocksauth.NewMemorySessionStore())

	err := svc.BeginOTP(context.Background(), "", "https://app")
	assert.True(t, apperrors.IsValidation(err))

	assert.NoError(t, svc.BeginOTP(context.Background(), "user@example.com", "https://app"))
}

func TestCompleteLogin_ConfirmedPersistsSession(t *testing.T) {
	identity := mocksauth.NewScriptedIdentityClient()
	identity.Current = testProviderSession("manager", "team-7", "Platform")
	sessions := mocksauth.NewMemorySessionStore()
	svc := newAuthService(identity, sessions)

	result, err := svc.CompleteLogin(context.Background(), "https://app/auth/callback?code=abc123")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateConfirmed, result.Flow.State)
	require.NotNil(t, result.Session)

	assert.NotEmpty(t, result.Session.ID)
	assert.Equal(t, "user-1", result.Session.UserID)
	assert.Equal(t, domainauth.RoleManager, result.Session.Role)
	assert.Equal(t, "team-7", result.Session.TeamID)
	assert.Equal(t, "Platform", result.Session.TeamName)
	assert.True(t, result.Session.TeamPersisted)

	stored, err := sessions.Get(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, *result.Session, stored)
}

func TestCompleteLogin_DeniedReturnsFlowOnly(t *testing.T) {
	identity := mocksauth.NewScriptedIdentityClient()
	identity.Current = testProviderSession("", "", "")
	sessions := mocksauth.NewMemorySessionStore()
	svc := newAuthService(identity, sessions)

	result, err := svc.CompleteLogin(context.Background(), "https://app/auth/callback?error=access_denied")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateDenied, result.Flow.State)
	assert.Nil(t, result.Session)
	assert.Equal(t, 0, identity.ExchangeCalls)
}

func TestCompleteLogin_NoIdentityClient(t *testing.T) {
	svc := newAuthService(nil, mocksauth.NewMemorySessionStore())

	result, err := svc.CompleteLogin(context.Background(), "https://app/auth/callback?code=abc")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateConfigMissing, result.Flow.State)
	assert.Nil(t, result.Session)
}

func TestCompleteLogin_TimesOutWithoutSession(t *testing.T) {
	identity := mocksauth.NewScriptedIdentityClient()
	identity.ExchangeCodeFunc = func(context.Context, string) (*domainauth.ProviderSession, error) {
		return nil, nil
	}
	svc := newAuthService(identity, mocksauth.NewMemorySessionStore())

	result, err := svc.CompleteLogin(context.Background(), "https://app/auth/callback?code=abc")
	require.NoError(t, err)
	assert.Equal(t, authflow.StateTimedOut, result.Flow.State)
	assert.Nil(t, result.Session)
	assert.True(t, apperrors.IsTimeout(result.Flow.Err))
}

func TestGetSession_ExpiredIsCleanedUp(t *testing.T) {
	sessions := mocksauth.NewMemorySessionStore()
	svc := newAuthService(mocksauth.NewScriptedIdentityClient(), sessions)

	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domainauth.RoleEmployee,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := svc.GetSession(context.Background(), "sess-1")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = sessions.Get(context.Background(), "sess-1")
	assert.Error(t, err)
}

func TestGetSession_Valid(t *testing.T) {
	sessions := mocksauth.NewMemorySessionStore()
	svc := newAuthService(mocksauth.NewScriptedIdentityClient(), sessions)

	want := domainauth.Session{
		ID:        "sess-2",
		UserID:    "user-1",
		Role:      domainauth.RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Save(context.Background(), want))

	got, err := svc.GetSession(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestLogout(t *testing.T) {
	identity := mocksauth.NewScriptedIdentityClient()
	sessions := mocksauth.NewMemorySessionStore()
	svc := newAuthService(identity, sessions)

	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{
		ID:        "sess-3",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, svc.Logout(context.Background(), "sess-3"))
	assert.Equal(t, 1, identity.SignOutCalls)

	_, err := sessions.Get(context.Background(), "sess-3")
	assert.Error(t, err)
}

func TestLogout_NoSessionID(t *testing.T) {
	svc := newAuthService(mocksauth.NewScriptedIdentityClient(), mocksauth.NewMemorySessionStore())
	assert.NoError(t, svc.Logout(context.Background(), ""))
}
