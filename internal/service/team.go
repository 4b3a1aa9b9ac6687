package service

import (
	"context"
	"log/slog"
	"strings"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// TeamStore is the local team source used when no backend service is
// configured. The team repository satisfies this.
type TeamStore interface {
	Create(ctx context.Context, name string) (*domainauth.Team, error)
	GetByID(ctx context.Context, id string) (*domainauth.Team, error)
	List(ctx context.Context) ([]domainauth.Team, error)
}

// TeamAssigner durably records a user's team membership. The profile
// repository satisfies this.
type TeamAssigner interface {
	SetTeam(ctx context.Context, userID, teamID string) error
}

// TeamServiceOptions groups dependencies for TeamService. Proxy may be nil;
// every operation defines local fallback behavior, except summarization
// which requires the backend.
type TeamServiceOptions struct {
	Proxy    ports.BackendProxy
	Teams    TeamStore
	Profiles TeamAssigner
	Cache    ports.TeamCache
	Logger   *slog.Logger
}

// TeamService manages teams and the user's team selection. When a backend
// proxy is configured it is the source of truth; otherwise the local store
// serves reads and writes.
type TeamService struct {
	proxy    ports.BackendProxy
	teams    TeamStore
	profiles TeamAssigner
	cache    ports.TeamCache
	logger   *slog.Logger
}

// NewTeamService constructs a new TeamService.
func NewTeamService(opts TeamServiceOptions) *TeamService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamService{
		proxy:    opts.Proxy,
		teams:    opts.Teams,
		profiles: opts.Profiles,
		cache:    opts.Cache,
		logger:   logger,
	}
}

// List returns all teams, from the backend when configured.
func (s *TeamService) List(ctx context.Context) ([]domainauth.Team, error) {
	if s.proxy != nil {
		return s.proxy.ListTeams(ctx)
	}
	return s.teams.List(ctx)
}

// Create registers a new team by name. The backend (or the local store) owns
// ID generation; the caller supplies only the name.
func (s *TeamService) Create(ctx context.Context, name string) (*domainauth.Team, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.ValidationField("name", "team name is required")
	}
	if s.proxy != nil {
		return s.proxy.CreateTeam(ctx, name)
	}
	return s.teams.Create(ctx, strings.TrimSpace(name))
}

// Summarize produces a backend-generated summary of a team's recent reports.
// It has no local fallback.
func (s *TeamService) Summarize(ctx context.Context, teamID string) (string, error) {
	if s.proxy == nil {
		return "", apperrors.ConfigMissing("backend service is not configured")
	}
	return s.proxy.SummarizeTeam(ctx, teamID)
}

// Switch moves a user onto a team. The switch is durable when the backend or
// the profile store can record it; otherwise the selection is held in the
// non-durable cache only. A durable switch clears any stale cached selection.
// The returned bool reports durability.
func (s *TeamService) Switch(ctx context.Context, userID, teamID string) (*domainauth.Team, bool, error) {
	team, err := s.lookupTeam(ctx, teamID)
	if err != nil {
		return nil, false, err
	}

	switch {
	case s.proxy != nil:
		if err := s.proxy.SwitchTeam(ctx, userID, teamID); err != nil {
			return nil, false, err
		}
	case s.profiles != nil:
		if err := s.profiles.SetTeam(ctx, userID, teamID); err != nil {
			return nil, false, err
		}
	default:
		if s.cache == nil {
			return nil, false, apperrors.ConfigMissing("no team selection store is configured")
		}
		if err := s.cache.Set(ctx, userID, *team); err != nil {
			return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "cache team selection")
		}
		return team, false, nil
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "clearing cached team selection failed", "user_id", userID, "error", err)
		}
	}
	return team, true, nil
}

// lookupTeam resolves a team by ID from whichever source is configured.
func (s *TeamService) lookupTeam(ctx context.Context, teamID string) (*domainauth.Team, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, apperrors.ValidationField("team_id", "team ID is required")
	}
	if s.proxy != nil {
		teams, err := s.proxy.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range teams {
			if t.ID == teamID {
				return &t, nil
			}
		}
		return nil, apperrors.NotFound("team")
	}
	return s.teams.GetByID(ctx, teamID)
}
