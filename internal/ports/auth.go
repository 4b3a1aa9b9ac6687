package ports

// Package ports defines interfaces (hexagonal ports) for auth, storage, and
// proxy behavior. Implementations live in internal/adapters and internal/data;
// orchestration in internal/service and internal/authflow.

import (
	"context"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
)

// AuthEventType classifies auth-state-change events.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "signed_in"
	AuthEventTokenRefreshed AuthEventType = "token_refreshed"
	AuthEventSignedOut      AuthEventType = "signed_out"
)

// AuthEvent is one entry in the identity provider's auth-state-change stream.
// Session is nil for sign-out events. Events arrive in emission order; the
// latest event is authoritative.
type AuthEvent struct {
	Type    AuthEventType
	Session *domainauth.ProviderSession
}

// OAuthSignInInput carries inputs for initiating an OAuth flow.
type OAuthSignInInput struct {
	Provider    string
	RedirectURL string
}

// OTPSignInInput carries inputs for initiating a magic-link sign-in.
type OTPSignInInput struct {
	Email       string
	RedirectURL string
}

// TokenPair groups implicit-flow tokens for SetSession.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IdentityClient is the identity provider capability. The provider owns all
// session state; the core only ever reads it.
type IdentityClient interface {
	// GetSession returns the current provider session, or nil when none exists.
	GetSession(ctx context.Context) (*domainauth.ProviderSession, error)

	// SignInWithOAuth starts the OAuth flow and returns the provider auth URL.
	SignInWithOAuth(ctx context.Context, in OAuthSignInInput) (string, error)

	// SignInWithOTP sends a magic-link email.
	SignInWithOTP(ctx context.Context, in OTPSignInInput) error

	// ExchangeCode completes the PKCE flow using the full callback URL and
	// returns the established session.
	ExchangeCode(ctx context.Context, rawURL string) (*domainauth.ProviderSession, error)

	// SetSession establishes a session directly from implicit-flow tokens.
	SetSession(ctx context.Context, tokens TokenPair) (*domainauth.ProviderSession, error)

	// AuthStateChanges subscribes to the auth-state-change stream. The release
	// func must be safe to call more than once; the channel is closed on release.
	AuthStateChanges() (<-chan AuthEvent, func())

	// SignOut destroys the current session.
	SignOut(ctx context.Context) error
}

// SessionStore persists and retrieves server-side user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore looks up the secondary per-user profile record. Lookups may
// fail with access_denied when blocked by row-level security; callers treat
// that as "source unavailable", not an error.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// TeamCache holds the non-durable cached team selection per user. Values from
// it are advisory only (TeamPersisted=false).
type TeamCache interface {
	Get(ctx context.Context, userID string) (*domainauth.Team, error)
	Set(ctx context.Context, userID string, team domainauth.Team) error
	Clear(ctx context.Context, userID string) error
}

// ReportStore persists weekly report rows. Access is governed externally by
// row-level security; denials surface as access_denied errors.
type ReportStore interface {
	Create(ctx context.Context, req *model.CreateReportRequest, userID string) (*model.Report, error)
	List(ctx context.Context, opts model.ReportsListOptions) ([]*model.Report, error)
}

// ProxyUser is a user record as reported by the backend proxy.
type ProxyUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// BackendProxy is the optional external HTTP backend. A nil BackendProxy is a
// normal, expected state: every consumer must define fallback behavior.
type BackendProxy interface {
	ListUsers(ctx context.Context) ([]ProxyUser, error)
	SetUserRole(ctx context.Context, userID string, role domainauth.Role) error
	ListTeams(ctx context.Context) ([]domainauth.Team, error)
	CreateTeam(ctx context.Context, name string) (*domainauth.Team, error)
	SummarizeTeam(ctx context.Context, teamID string) (string, error)
	SwitchTeam(ctx context.Context, userID, teamID string) error
}
