package authstate

// Package authstate maintains the current authentication snapshot: the live
// provider session plus its role/team resolution. A single goroutine owns all
// writes; readers take consistent snapshots through Current.

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
	"github.com/pulsehq/pulse-ui-api/internal/resolve"
)

// Snapshot is one consistent view of authentication state. Session is nil when
// signed out; Resolution is only meaningful while Session is set.
type Snapshot struct {
	Session    *domainauth.ProviderSession
	Resolution domainauth.Resolution
}

// SignedIn reports whether the snapshot carries a live session.
func (s Snapshot) SignedIn() bool { return s.Session != nil }

// Store subscribes to identity provider events and keeps the snapshot
// current. Every sign-in and token refresh re-runs resolution so role or team
// changes picked up by the provider propagate without a restart.
type Store struct {
	identity ports.IdentityClient
	resolver *resolve.Resolver
	logger   *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewStore constructs a Store. Run must be called before events are tracked.
func NewStore(identity ports.IdentityClient, resolver *resolve.Resolver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{identity: identity, resolver: resolver, logger: logger}
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Run primes the snapshot from the provider, then consumes auth-state events
// until ctx is canceled or the stream closes. The subscription is released on
// every exit path. Run is the only writer.
func (s *Store) Run(ctx context.Context) error {
	events, release := s.identity.AuthStateChanges()
	defer release()

	if sess, err := s.identity.GetSession(ctx); err != nil {
		s.logger.DebugContext(ctx, "initial session probe failed", "error", err)
	} else if sess != nil {
		s.apply(ctx, sess)
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Store) handle(ctx context.Context, ev ports.AuthEvent) {
	switch ev.Type {
	case ports.AuthEventSignedIn, ports.AuthEventTokenRefreshed:
		if ev.Session == nil {
			s.logger.WarnContext(ctx, "auth event without session ignored", "type", ev.Type)
			return
		}
		s.apply(ctx, ev.Session)
	case ports.AuthEventSignedOut:
		s.clear()
		s.logger.InfoContext(ctx, "auth state cleared")
	default:
		s.logger.DebugContext(ctx, "unhandled auth event", "type", ev.Type)
	}
}

func (s *Store) apply(ctx context.Context, sess *domainauth.ProviderSession) {
	res := s.resolver.Resolve(ctx, sess.User)
	s.mu.Lock()
	s.snap = Snapshot{Session: sess, Resolution: res}
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "auth state updated",
		"user_id", sess.User.ID,
		"role", res.Role,
		"team_persisted", res.TeamPersisted,
	)
}

func (s *Store) clear() {
	s.mu.Lock()
	s.snap = Snapshot{}
	s.mu.Unlock()
}
