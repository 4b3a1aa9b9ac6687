package authflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	mocks "github.com/pulsehq/pulse-ui-api/internal/mocks/auth"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

func testSession(userID string) *domainauth.ProviderSession {
	return &domainauth.ProviderSession{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domainauth.User{ID: userID, Email: userID + "@example.com"},
	}
}

func TestMachine_Denied_NeverCallsProvider(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	m := &Machine{Identity: identity}

	result := m.Run(context.Background(), "https://app/cb?code=abc&error=access_denied&error_description=nope")

	assert.Equal(t, StateDenied, result.State)
	require.Error(t, result.Err)
	assert.True(t, apperrors.IsAccessDenied(result.Err))
	assert.Contains(t, result.Err.Error(), "nope")
	assert.Zero(t, identity.ExchangeCalls, "denial must short-circuit before code exchange")
	assert.Zero(t, identity.SetSessionCalls)
	assert.Zero(t, identity.GetSessionCalls)
}

func TestMachine_ConfigMissing(t *testing.T) {
	m := &Machine{Identity: nil}

	result := m.Run(context.Background(), "https://app/cb?code=abc")

	assert.Equal(t, StateConfigMissing, result.State)
	assert.True(t, apperrors.IsConfigMissing(result.Err))
}

func TestMachine_CodeExchange_ConfirmedViaGetSession(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	sess := testSession("u1")
	identity.ExchangeCodeFunc = func(_ context.Context, rawURL string) (*domainauth.ProviderSession, error) {
		assert.Contains(t, rawURL, "code=abc")
		identity.Current = sess
		return sess, nil
	}
	m := &Machine{Identity: identity}

	result := m.Run(context.Background(), "https://app/cb?code=abc&redirect_uri=%2Fteam")

	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, sess, result.Session)
	assert.Equal(t, "/team", result.RedirectTarget)
	assert.NoError(t, result.SoftErr)
	assert.Equal(t, 1, identity.ExchangeCalls)
	assert.Zero(t, identity.SubscribeCalls, "session was available, no subscription needed")
}

func TestMachine_ExchangeFailure_IsSoft_SessionArrivesAsync(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	identity.ExchangeCodeFunc = func(context.Context, string) (*domainauth.ProviderSession, error) {
		return nil, errors.New("exchange blew up")
	}
	m := &Machine{Identity: identity, WaitBudget: 2 * time.Second}

	go func() {
		time.Sleep(50 * time.Millisecond)
		identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: testSession("u2")})
	}()

	result := m.Run(context.Background(), "https://app/cb?code=abc")

	assert.Equal(t, StateConfirmed, result.State)
	require.NotNil(t, result.Session)
	assert.Equal(t, "u2", result.Session.User.ID)
	require.Error(t, result.SoftErr, "exchange failure is recorded, not terminal")
	assert.Contains(t, result.SoftErr.Error(), "exchange authorization code")
	assert.Equal(t, 1, identity.ReleaseCount(), "subscription released exactly once")
	assert.Zero(t, identity.SubscriberCount())
}

func TestMachine_ImplicitTokens_SetSession(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	sess := testSession("u3")
	identity.SetSessionFunc = func(_ context.Context, tokens ports.TokenPair) (*domainauth.ProviderSession, error) {
		assert.Equal(t, "tok", tokens.AccessToken)
		assert.Equal(t, "ref", tokens.RefreshToken)
		identity.Current = sess
		return sess, nil
	}
	m := &Machine{Identity: identity}

	result := m.Run(context.Background(), "https://app/cb#access_token=tok&refresh_token=ref")

	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, 1, identity.SetSessionCalls)
	assert.Zero(t, identity.ExchangeCalls)
}

func TestMachine_TimedOut_AfterBudget(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	budget := 150 * time.Millisecond
	m := &Machine{Identity: identity, WaitBudget: budget}

	start := time.Now()
	result := m.Run(context.Background(), "https://app/cb")
	elapsed := time.Since(start)

	assert.Equal(t, StateTimedOut, result.State)
	assert.True(t, apperrors.IsTimeout(result.Err))
	assert.GreaterOrEqual(t, elapsed, budget, "must not time out before the budget")
	assert.Less(t, elapsed, budget+time.Second)
	assert.Equal(t, 1, identity.ReleaseCount(), "subscription released exactly once on timeout")
	assert.Zero(t, identity.SubscriberCount())
}

func TestMachine_SignedOutEventsIgnoredWhileWaiting(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	m := &Machine{Identity: identity, WaitBudget: 2 * time.Second}

	go func() {
		time.Sleep(30 * time.Millisecond)
		identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedOut})
		time.Sleep(30 * time.Millisecond)
		identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: testSession("u4")})
	}()

	result := m.Run(context.Background(), "https://app/cb")

	assert.Equal(t, StateConfirmed, result.State)
	require.NotNil(t, result.Session)
	assert.Equal(t, "u4", result.Session.User.ID)
}

func TestMachine_ContextCancelReleasesSubscription(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	m := &Machine{Identity: identity, WaitBudget: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := m.Run(ctx, "https://app/cb")

	assert.Equal(t, StateTimedOut, result.State)
	assert.Equal(t, 1, identity.ReleaseCount())
	assert.Zero(t, identity.SubscriberCount())
}

func TestMachine_CleanURLPreservesOnlyRedirectTarget(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	identity.Current = testSession("u5")
	m := &Machine{Identity: identity}

	result := m.Run(context.Background(), "https://app/auth/callback?code=abc&redirect_uri=%2Freports#access_token=tok&refresh_token=ref")

	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, "https://app/auth/callback?redirect_uri=%2Freports", result.CleanURL)
	assert.NotContains(t, result.CleanURL, "code=")
	assert.NotContains(t, result.CleanURL, "access_token")
}

func TestMachine_RetryAfterTimeout(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	m := &Machine{Identity: identity, WaitBudget: 100 * time.Millisecond}

	first := m.Run(context.Background(), "https://app/cb")
	require.Equal(t, StateTimedOut, first.State)

	// A retry re-runs the whole machine from parsing.
	identity.Current = testSession("u6")
	second := m.Run(context.Background(), "https://app/cb")
	assert.Equal(t, StateConfirmed, second.State)
	assert.Equal(t, 1, identity.ReleaseCount(), "second run confirmed without subscribing again")
}

func TestMachine_StateTerminal(t *testing.T) {
	assert.True(t, StateConfirmed.Terminal())
	assert.True(t, StateTimedOut.Terminal())
	assert.True(t, StateDenied.Terminal())
	assert.True(t, StateConfigMissing.Terminal())
	assert.False(t, StateParsing.Terminal())
	assert.False(t, StateWaiting.Terminal())
	assert.False(t, StateExchanging.Terminal())
}
