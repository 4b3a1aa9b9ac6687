package auth

// Package auth contains domain-level types for authentication, roles, and
// team membership. It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ParseRole validates a raw role string against the closed role set.
// Input is trimmed and lowercased before matching.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleManager:
		return RoleManager, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

// AtLeast reports whether r grants at least the privileges of other.
// Ordering: admin > manager > employee.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleEmployee:
		return 1
	default:
		return 0
	}
}

// Metadata is the provider-side metadata bag attached to a user. The identity
// provider exposes two of these (app-owned and user-owned); role and team
// fields in either may be absent.
type Metadata struct {
	Role     string `json:"role,omitempty"`
	TeamID   string `json:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
}

// User is the authenticated principal as reported by the identity provider.
// Immutable within one session lifetime; a fresh value arrives with each
// auth-state-change event.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	AppMetadata  Metadata `json:"app_metadata"`
	UserMetadata Metadata `json:"user_metadata"`
}

// ProviderSession is the opaque token bundle owned by the identity provider.
// The core only ever holds a read-only reference; it is created on sign-in,
// replaced on refresh, and destroyed on sign-out or expiry.
type ProviderSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the provider session has passed its expiry.
func (s ProviderSession) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Team is an organizational grouping of users. A user belongs to at most one
// team at a time.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolution is the access-control triple computed from a User by the
// resolution pipeline. When TeamPersisted is false the team value came from
// the non-durable cache and must be treated as advisory only.
type Resolution struct {
	Role          Role  `json:"role"`
	Team          *Team `json:"team,omitempty"`
	TeamPersisted bool  `json:"team_persisted"`
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	TeamID        string    `json:"team_id,omitempty"`
	TeamName      string    `json:"team_name,omitempty"`
	TeamPersisted bool      `json:"team_persisted"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Team returns the session's team, or nil when the user has none.
func (s Session) Team() *Team {
	if s.TeamID == "" {
		return nil
	}
	return &Team{ID: s.TeamID, Name: s.TeamName}
}
