package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pulsehq/pulse-ui-api/internal/data/pgxutil"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
)

// ProfileRepo provides database operations for per-user profiles. The table
// may sit behind row-level security; a denial surfaces as an access_denied
// error and callers are expected to degrade.
type ProfileRepo struct {
	DB *sql.DB
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

// GetByUserID retrieves a profile, joining the team name when assigned.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Validation("user ID is required")
	}

	var profile model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			SELECT p.user_id, p.role, p.team_id::text AS team_id, t.name AS team_name
			FROM profiles p
			LEFT JOIN teams t ON t.id = p.team_id
			WHERE p.user_id = $1`, userID)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		profile, queryErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return queryErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile")
		}
		return nil, apperrors.MapDBError(err)
	}
	return &profile, nil
}

// Upsert creates or updates the profile's role and team assignment.
func (r *ProfileRepo) Upsert(ctx context.Context, profile model.Profile) error {
	if strings.TrimSpace(profile.UserID) == "" {
		return apperrors.Validation("user ID is required")
	}

	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO profiles (user_id, role, team_id)
			VALUES ($1, $2, $3::uuid)
			ON CONFLICT (user_id) DO UPDATE
			SET role = EXCLUDED.role, team_id = EXCLUDED.team_id, updated_at = now()`,
			profile.UserID, profile.Role, profile.TeamID,
		)
		return execErr
	}); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// SetTeam durably assigns a user to a team, creating the profile if needed.
func (r *ProfileRepo) SetTeam(ctx context.Context, userID, teamID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(teamID) == "" {
		return apperrors.Validation("user ID and team ID are required")
	}

	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO profiles (user_id, team_id)
			VALUES ($1, $2::uuid)
			ON CONFLICT (user_id) DO UPDATE
			SET team_id = EXCLUDED.team_id, updated_at = now()`,
			userID, teamID,
		)
		return execErr
	}); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// SetRole durably assigns a user's role, creating the profile if needed.
func (r *ProfileRepo) SetRole(ctx context.Context, userID, role string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Validation("user ID is required")
	}

	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO profiles (user_id, role)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET role = EXCLUDED.role, updated_at = now()`,
			userID, role,
		)
		return execErr
	}); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// ListUserIDsByTeam returns the IDs of users assigned to a team. Used to
// scope report listings to a manager's team.
func (r *ProfileRepo) ListUserIDsByTeam(ctx context.Context, teamID string) ([]string, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, apperrors.Validation("team ID is required")
	}

	var ids []string
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			SELECT user_id FROM profiles WHERE team_id = $1::uuid ORDER BY user_id`, teamID)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		ids, queryErr = pgx.CollectRows(rows, pgx.RowTo[string])
		return queryErr
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return ids, nil
}
