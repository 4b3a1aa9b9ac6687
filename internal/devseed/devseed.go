// Package devseed populates a development database with teams, profiles,
// and sample weekly reports so the UI has data to render out of the box.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsehq/pulse-ui-api/internal/data"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
)

// Services bundles the repositories needed for development seeding.
type Services struct {
	DB       *sql.DB
	teams    *data.TeamRepo
	profiles *data.ProfileRepo
	reports  *data.ReportRepo
}

// NewServices constructs the repositories used for seeding from the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:       db,
		teams:    data.NewTeamRepo(db),
		profiles: data.NewProfileRepo(db),
		reports:  data.NewReportRepo(db),
	}
}

// Run executes the full development seeding workflow against the provided DB.
// Individual failures are logged and counted rather than aborting the run.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	teamIDs, failures := seedTeams(ctx, svcs.teams, logger)

	failures += seedProfiles(ctx, svcs.profiles, teamIDs, logger)
	failures += seedReports(ctx, svcs.reports, logger)

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func defaultTeamNames() []string {
	return []string{"Platform", "Mobile", "Data"}
}

// seedTeams creates the default teams and returns a name-to-ID mapping for
// the teams that exist after seeding.
func seedTeams(ctx context.Context, repo *data.TeamRepo, logger *slog.Logger) (map[string]string, int) {
	failures := 0
	for _, name := range defaultTeamNames() {
		_, err := repo.Create(ctx, name)
		switch {
		case err == nil:
			if logger != nil {
				logger.InfoContext(ctx, "created team", "name", name)
			}
		case apperrors.IsConflict(err):
			if logger != nil {
				logger.InfoContext(ctx, "team already exists", "name", name)
			}
		default:
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create team", "name", name, "error", err)
			}
			failures++
		}
	}

	teams, err := repo.List(ctx)
	if err != nil {
		if logger != nil {
			logger.ErrorContext(ctx, "failed to list teams after seeding", "error", err)
		}
		return map[string]string{}, failures + 1
	}

	ids := make(map[string]string, len(teams))
	for _, team := range teams {
		ids[team.Name] = team.ID
	}
	return ids, failures
}

type seedProfile struct {
	UserID string
	Role   domainauth.Role
	Team   string
}

func defaultProfiles() []seedProfile {
	return []seedProfile{
		{UserID: "dev-admin", Role: domainauth.RoleAdmin},
		{UserID: "dev-manager", Role: domainauth.RoleManager, Team: "Platform"},
		{UserID: "dev-employee", Role: domainauth.RoleEmployee, Team: "Platform"},
		{UserID: "dev-mobile", Role: domainauth.RoleEmployee, Team: "Mobile"},
	}
}

func seedProfiles(
	ctx context.Context,
	repo *data.ProfileRepo,
	teamIDs map[string]string,
	logger *slog.Logger,
) int {
	failures := 0
	for _, seed := range defaultProfiles() {
		role := string(seed.Role)
		profile := model.Profile{
			UserID: seed.UserID,
			Role:   &role,
		}
		if seed.Team != "" {
			if teamID, ok := teamIDs[seed.Team]; ok {
				id := teamID
				profile.TeamID = &id
			} else if logger != nil {
				logger.WarnContext(ctx, "seed team missing, leaving profile unassigned",
					"user_id", seed.UserID, "team", seed.Team)
			}
		}

		if err := repo.Upsert(ctx, profile); err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed profile", "user_id", seed.UserID, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded profile", "user_id", seed.UserID, "role", role)
		}
	}
	return failures
}

type seedReport struct {
	UserID  string
	Request model.CreateReportRequest
}

func defaultReports() []seedReport {
	weekStart := lastMonday(time.Now().UTC()).Format("2006-01-02")
	blockers := "waiting on staging database access"
	return []seedReport{
		{
			UserID: "dev-employee",
			Request: model.CreateReportRequest{
				WeekStart: weekStart,
				Progress:  "Finished the report list pagination and fixed the session expiry bug.",
				Blockers:  &blockers,
				Plans:     "Start on the team switcher UI.",
				Tags:      []string{"frontend", "auth"},
			},
		},
		{
			UserID: "dev-manager",
			Request: model.CreateReportRequest{
				WeekStart: weekStart,
				Progress:  "Reviewed Q3 roadmap and unblocked the mobile release.",
				Plans:     "1:1s and sprint planning.",
				Tags:      []string{"planning"},
			},
		},
	}
}

func seedReports(ctx context.Context, repo *data.ReportRepo, logger *slog.Logger) int {
	failures := 0
	for _, seed := range defaultReports() {
		req := seed.Request
		if _, err := repo.Create(ctx, &req, seed.UserID); err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed report", "user_id", seed.UserID, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded report", "user_id", seed.UserID, "week_start", req.WeekStart)
		}
	}
	return failures
}

// lastMonday returns the Monday on or before t.
func lastMonday(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
