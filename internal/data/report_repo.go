package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pulsehq/pulse-ui-api/internal/data/database"
	"github.com/pulsehq/pulse-ui-api/internal/data/pgxutil"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
)

// ReportRepo provides database operations for weekly reports. Reports are
// append-only: there is no update or delete.
type ReportRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewReportRepo creates a new ReportRepo with real time provider.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewReportRepoWithTimeProvider creates a ReportRepo with a custom time provider (useful for tests).
func NewReportRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ReportRepo {
	return &ReportRepo{DB: db, timeProvider: tp}
}

// Create inserts a new report owned by userID. userID may be empty when the
// submitter is anonymous.
func (r *ReportRepo) Create(
	ctx context.Context,
	req *model.CreateReportRequest,
	userID string,
) (*model.Report, error) {
	if req == nil {
		return nil, apperrors.Validation("create report request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	weekStart, err := req.ParseWeekStart()
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var owner *string
	if trimmed := strings.TrimSpace(userID); trimmed != "" {
		owner = &trimmed
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Report
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			INSERT INTO weekly_reports (week_start, progress, blockers, plans, user_id, tags, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, week_start, progress, blockers, plans, user_id, tags
		`,
			weekStart,
			req.Progress,
			req.Blockers,
			req.Plans,
			owner,
			tags,
			createdAt,
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		out, queryErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Report])
		return queryErr
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves reports newest first, filtered per the options. An owner
// filter is applied only when UserID or TeamUserIDs is set.
func (r *ReportRepo) List(
	ctx context.Context,
	opts model.ReportsListOptions,
) ([]*model.Report, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(reportColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("created_at", "DESC"),
	}
	if opts.UserID != nil && strings.TrimSpace(*opts.UserID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("user_id", database.Equal, strings.TrimSpace(*opts.UserID)),
		))
	}
	if opts.TeamUserIDs != nil {
		// An empty member set must yield zero rows, not every row.
		if len(opts.TeamUserIDs) == 0 {
			return []*model.Report{}, nil
		}
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("user_id", database.Any, opts.TeamUserIDs),
		))
	}
	if opts.WeekStart != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("week_start", database.Equal, *opts.WeekStart),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("weekly_reports", queryOpts...))

	var rowsOut []model.Report
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Report])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.Report, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// GetByID retrieves one report.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
			SELECT id, created_at, week_start, progress, blockers, plans, user_id, tags
			FROM weekly_reports
			WHERE id = $1`, id)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		report, queryErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Report])
		return queryErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("report")
		}
		return nil, apperrors.MapDBError(err)
	}
	return &report, nil
}

func reportColumns() []string {
	return []string{
		"id",
		"created_at",
		"week_start",
		"progress",
		"blockers",
		"plans",
		"user_id",
		"tags",
	}
}
