package authstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	mocks "github.com/pulsehq/pulse-ui-api/internal/mocks/auth"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
	"github.com/pulsehq/pulse-ui-api/internal/resolve"
)

func session(userID, role string) *domainauth.ProviderSession {
	return &domainauth.ProviderSession{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
		User: domainauth.User{
			ID:          userID,
			Email:       userID + "@example.com",
			AppMetadata: domainauth.Metadata{Role: role},
		},
	}
}

func newStore(identity ports.IdentityClient) *Store {
	return NewStore(identity, resolve.NewResolver(resolve.ResolverOptions{}), nil)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestStore_PrimesFromExistingSession(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	identity.Current = session("u1", "manager")
	store := newStore(identity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx) }()

	waitFor(t, func() bool { return store.Current().SignedIn() })
	snap := store.Current()
	assert.Equal(t, "u1", snap.Session.User.ID)
	assert.Equal(t, domainauth.RoleManager, snap.Resolution.Role)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, identity.ReleaseCount(), "subscription released on shutdown")
}

func TestStore_SignInThenSignOut(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	store := newStore(identity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	waitFor(t, func() bool { return identity.SubscriberCount() == 1 })
	assert.False(t, store.Current().SignedIn())

	identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: session("u2", "admin")})
	waitFor(t, func() bool { return store.Current().SignedIn() })
	assert.Equal(t, domainauth.RoleAdmin, store.Current().Resolution.Role)

	identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedOut})
	waitFor(t, func() bool { return !store.Current().SignedIn() })
	assert.Equal(t, Snapshot{}, store.Current())
}

func TestStore_TokenRefreshReresolves(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	store := newStore(identity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	waitFor(t, func() bool { return identity.SubscriberCount() == 1 })
	identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: session("u3", "employee")})
	waitFor(t, func() bool { return store.Current().SignedIn() })
	require.Equal(t, domainauth.RoleEmployee, store.Current().Resolution.Role)

	// The provider may attach fresh metadata on refresh.
	identity.Emit(ports.AuthEvent{Type: ports.AuthEventTokenRefreshed, Session: session("u3", "manager")})
	waitFor(t, func() bool { return store.Current().Resolution.Role == domainauth.RoleManager })
}

func TestStore_EventWithoutSessionIgnored(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	identity.Current = session("u4", "admin")
	store := newStore(identity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	waitFor(t, func() bool { return store.Current().SignedIn() })
	identity.Emit(ports.AuthEvent{Type: ports.AuthEventSignedIn, Session: nil})

	// Give the event time to be consumed; the snapshot must survive.
	time.Sleep(30 * time.Millisecond)
	assert.True(t, store.Current().SignedIn())
}

func TestStore_StreamCloseEndsRun(t *testing.T) {
	identity := mocks.NewScriptedIdentityClient()
	store := newStore(identity)

	done := make(chan error, 1)
	go func() { done <- store.Run(context.Background()) }()

	waitFor(t, func() bool { return identity.SubscriberCount() == 1 })
	identity.CloseSubscribers()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stream close")
	}
}
