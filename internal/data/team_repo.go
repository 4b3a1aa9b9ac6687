package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pulsehq/pulse-ui-api/internal/data/pgxutil"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
)

// teamRow mirrors the teams table for struct scanning.
type teamRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// TeamRepo provides database operations for teams. It is the local source of
// teams when no backend service is configured.
type TeamRepo struct {
	DB *sql.DB
}

// NewTeamRepo creates a new TeamRepo.
func NewTeamRepo(db *sql.DB) *TeamRepo {
	return &TeamRepo{DB: db}
}

// Create inserts a team by name. A duplicate name maps to a conflict error.
func (r *TeamRepo) Create(ctx context.Context, name string) (*domainauth.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("team name is required")
	}

	var out teamRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			INSERT INTO teams (name) VALUES ($1)
			RETURNING id::text AS id, name`, name)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		out, queryErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[teamRow])
		return queryErr
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &domainauth.Team{ID: out.ID, Name: out.Name}, nil
}

// GetByID retrieves one team.
func (r *TeamRepo) GetByID(ctx context.Context, id string) (*domainauth.Team, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("team ID is required")
	}

	var out teamRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			SELECT id::text AS id, name FROM teams WHERE id = $1::uuid`, id)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		out, queryErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[teamRow])
		return queryErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("team")
		}
		return nil, apperrors.MapDBError(err)
	}
	return &domainauth.Team{ID: out.ID, Name: out.Name}, nil
}

// List retrieves all teams ordered by name.
func (r *TeamRepo) List(ctx context.Context) ([]domainauth.Team, error) {
	var rowsOut []teamRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			SELECT id::text AS id, name FROM teams ORDER BY name`)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		rowsOut, queryErr = pgx.CollectRows(rows, pgx.RowToStructByName[teamRow])
		return queryErr
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	teams := make([]domainauth.Team, len(rowsOut))
	for i, row := range rowsOut {
		teams[i] = domainauth.Team{ID: row.ID, Name: row.Name}
	}
	return teams, nil
}
