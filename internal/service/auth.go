package service

// Package service contains application services orchestrating ports, the
// sign-in machine, and the resolution pipeline.

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse-ui-api/internal/authflow"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
	"github.com/pulsehq/pulse-ui-api/internal/resolve"
)

// DefaultSessionTTL bounds the server-side session lifetime when no TTL is
// configured.
const DefaultSessionTTL = 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Identity   ports.IdentityClient
	Sessions   ports.SessionStore
	Resolver   *resolve.Resolver
	WaitBudget time.Duration
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// AuthService orchestrates sign-in: it begins provider flows, drives the
// sign-in completion machine on the callback URL, resolves the role and team,
// and persists the resulting server-side session.
type AuthService struct {
	identity   ports.IdentityClient
	sessions   ports.SessionStore
	resolver   *resolve.Resolver
	waitBudget time.Duration
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		identity:   opts.Identity,
		sessions:   opts.Sessions,
		resolver:   opts.Resolver,
		waitBudget: opts.WaitBudget,
		sessionTTL: ttl,
		logger:     logger,
	}
}

// BeginOAuth starts an OAuth flow and returns the provider auth URL.
func (s *AuthService) BeginOAuth(ctx context.Context, provider, redirectURL string) (string, error) {
	if s.identity == nil {
		return "", apperrors.ConfigMissing("identity provider is not configured")
	}
	url, err := s.identity.SignInWithOAuth(ctx, ports.OAuthSignInInput{
		Provider:    provider,
		RedirectURL: redirectURL,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeNetwork, "begin oauth flow")
	}
	return url, nil
}

// BeginOTP sends a magic-link sign-in email.
func (s *AuthService) BeginOTP(ctx context.Context, email, redirectURL string) error {
	if s.identity == nil {
		return apperrors.ConfigMissing("identity provider is not configured")
	}
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if err := s.identity.SignInWithOTP(ctx, ports.OTPSignInInput{
		Email:       email,
		RedirectURL: redirectURL,
	}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "send magic link")
	}
	return nil
}

// CompleteLoginResult is the outcome of completing a sign-in on the callback
// URL. Session is nil unless the flow reached a confirmed state.
type CompleteLoginResult struct {
	Flow    authflow.Result
	Session *domainauth.Session
}

// CompleteLogin drives the sign-in completion machine over the callback URL.
// On confirmation it resolves the user's role and team and persists a
// server-side session. Non-confirmed terminal states are returned without
// error so callers can render the failure; the flow's own Err field carries
// the diagnosis.
func (s *AuthService) CompleteLogin(ctx context.Context, rawURL string) (*CompleteLoginResult, error) {
	machine := &authflow.Machine{
		Identity:   s.identity,
		WaitBudget: s.waitBudget,
		Logger:     s.logger,
	}
	flow := machine.Run(ctx, rawURL)
	result := &CompleteLoginResult{Flow: flow}
	if !flow.Confirmed() {
		return result, nil
	}

	resolution := s.resolver.Resolve(ctx, flow.Session.User)

	session := domainauth.Session{
		ID:            uuid.NewString(),
		UserID:        flow.Session.User.ID,
		Email:         flow.Session.User.Email,
		Role:          resolution.Role,
		TeamPersisted: resolution.TeamPersisted,
		ExpiresAt:     time.Now().Add(s.sessionTTL),
	}
	if resolution.Team != nil {
		session.TeamID = resolution.Team.ID
		session.TeamName = resolution.Team.Name
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "save session")
	}

	s.logger.InfoContext(ctx, "login completed",
		"user_id", session.UserID,
		"role", session.Role,
		"team_persisted", session.TeamPersisted,
	)
	result.Session = &session
	return result, nil
}

// GetSession retrieves a server-side session, deleting it when expired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.NotFound("session")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			s.logger.WarnContext(ctx, "cleanup of expired session failed", "error", deleteErr)
		}
		return nil, apperrors.NotFound("session")
	}
	return &session, nil
}

// Logout signs the user out of the identity provider and removes the
// server-side session. A missing session ID is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.identity != nil {
		if err := s.identity.SignOut(ctx); err != nil {
			s.logger.WarnContext(ctx, "provider sign-out failed", "error", err)
		}
	}
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "delete session")
	}
	return nil
}
