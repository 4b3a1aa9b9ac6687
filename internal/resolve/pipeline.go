package resolve

// Package resolve computes the access-control role and team assignment for an
// authenticated user by consulting data sources in priority order, degrading
// gracefully when a secondary source is unavailable.

import (
	"context"
	"log/slog"
	"strings"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// EmailRule maps an email substring to a role. The rules are a development
// placeholder for environments lacking real role metadata and are meant to be
// replaced by operator configuration.
type EmailRule struct {
	Substring string
	Role      domainauth.Role
}

// DefaultEmailRules are the placeholder heuristics applied when no other
// role source matches.
func DefaultEmailRules() []EmailRule {
	return []EmailRule{
		{Substring: "admin", Role: domainauth.RoleAdmin},
		{Substring: "manager", Role: domainauth.RoleManager},
		{Substring: "lead", Role: domainauth.RoleManager},
	}
}

// ResolverOptions groups dependencies for Resolver.
type ResolverOptions struct {
	Profiles   ports.ProfileStore
	TeamCache  ports.TeamCache
	EmailRules []EmailRule // nil selects DefaultEmailRules
	Logger     *slog.Logger
}

// Resolver derives (Role, Team, TeamPersisted) from a User plus two optional
// secondary sources. Role and team are resolved independently, each by an
// ordered list of attempts evaluated left to right with short-circuit on the
// first match. Resolution is deterministic: identical inputs always yield an
// identical triple.
type Resolver struct {
	profiles   ports.ProfileStore
	teamCache  ports.TeamCache
	emailRules []EmailRule
	logger     *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	rules := opts.EmailRules
	if rules == nil {
		rules = DefaultEmailRules()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		profiles:   opts.Profiles,
		teamCache:  opts.TeamCache,
		emailRules: rules,
		logger:     logger,
	}
}

// Resolve computes the resolution triple for a user. Secondary-source
// failures (access denial, network) degrade silently to the next source.
func (r *Resolver) Resolve(ctx context.Context, user domainauth.User) domainauth.Resolution {
	// The profile record feeds both fields; fetch it at most once per run.
	profile := r.lookupProfile(ctx, user.ID)

	res := domainauth.Resolution{Role: r.resolveRole(user, profile)}
	res.Team, res.TeamPersisted = r.resolveTeam(ctx, user, profile)
	return res
}

// roleAttempt tries one role source; ok is false when the source has no
// valid answer.
type roleAttempt func() (domainauth.Role, bool)

func (r *Resolver) resolveRole(user domainauth.User, profile *model.Profile) domainauth.Role {
	attempts := []roleAttempt{
		func() (domainauth.Role, bool) { return domainauth.ParseRole(user.AppMetadata.Role) },
		func() (domainauth.Role, bool) { return domainauth.ParseRole(user.UserMetadata.Role) },
		func() (domainauth.Role, bool) { return roleFromProfile(profile) },
		func() (domainauth.Role, bool) { return r.roleFromEmail(user.Email) },
	}
	for _, attempt := range attempts {
		if role, ok := attempt(); ok {
			return role
		}
	}
	return domainauth.RoleEmployee
}

func roleFromProfile(profile *model.Profile) (domainauth.Role, bool) {
	if profile == nil || profile.Role == nil {
		return "", false
	}
	return domainauth.ParseRole(*profile.Role)
}

func (r *Resolver) roleFromEmail(email string) (domainauth.Role, bool) {
	lowered := strings.ToLower(email)
	for _, rule := range r.emailRules {
		if rule.Substring != "" && strings.Contains(lowered, strings.ToLower(rule.Substring)) {
			return rule.Role, true
		}
	}
	return "", false
}

func (r *Resolver) resolveTeam(ctx context.Context, user domainauth.User, profile *model.Profile) (*domainauth.Team, bool) {
	// 1. Provider metadata is authoritative and durable.
	if team := teamFromMetadata(user); team != nil {
		return team, true
	}

	// 2. Profile record, when reachable, is durable.
	if team := teamFromProfile(profile); team != nil {
		return team, true
	}

	// 3. Cached selection is advisory only and must be re-confirmed.
	if r.teamCache != nil {
		team, err := r.teamCache.Get(ctx, user.ID)
		if err != nil {
			r.logger.DebugContext(ctx, "team cache unavailable", "user_id", user.ID, "error", err)
		} else if team != nil {
			return team, false
		}
	}

	return nil, false
}

func teamFromMetadata(user domainauth.User) *domainauth.Team {
	for _, md := range []domainauth.Metadata{user.AppMetadata, user.UserMetadata} {
		if id := strings.TrimSpace(md.TeamID); id != "" {
			return &domainauth.Team{ID: id, Name: strings.TrimSpace(md.TeamName)}
		}
	}
	return nil
}

func teamFromProfile(profile *model.Profile) *domainauth.Team {
	if profile == nil || profile.TeamID == nil || strings.TrimSpace(*profile.TeamID) == "" {
		return nil
	}
	team := &domainauth.Team{ID: strings.TrimSpace(*profile.TeamID)}
	if profile.TeamName != nil {
		team.Name = strings.TrimSpace(*profile.TeamName)
	}
	return team
}

// lookupProfile fetches the secondary profile record. Any failure, including
// a row-level-security denial, means "source unavailable" and is only
// debug-logged.
func (r *Resolver) lookupProfile(ctx context.Context, userID string) *model.Profile {
	if r.profiles == nil || userID == "" {
		return nil
	}
	profile, err := r.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if !apperrors.IsUnavailableSource(err) {
			r.logger.WarnContext(ctx, "profile lookup failed", "user_id", userID, "error", err)
		} else {
			r.logger.DebugContext(ctx, "profile source unavailable", "user_id", userID, "error", err)
		}
		return nil
	}
	return profile
}
