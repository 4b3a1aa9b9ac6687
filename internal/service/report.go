package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// TeamMemberLister resolves the user IDs belonging to a team. The profile
// repository satisfies this.
type TeamMemberLister interface {
	ListUserIDsByTeam(ctx context.Context, teamID string) ([]string, error)
}

// ReportServiceOptions groups dependencies for ReportService.
type ReportServiceOptions struct {
	Reports ports.ReportStore
	Members TeamMemberLister
	Logger  *slog.Logger
}

// ReportService scopes weekly report reads and writes to the caller's role:
// employees see their own reports, managers see their team's, admins see all.
type ReportService struct {
	reports ports.ReportStore
	members TeamMemberLister
	logger  *slog.Logger
}

// NewReportService constructs a new ReportService.
func NewReportService(opts ReportServiceOptions) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		reports: opts.Reports,
		members: opts.Members,
		logger:  logger,
	}
}

// Create stores a weekly report owned by the session's user.
func (s *ReportService) Create(ctx context.Context, sess domainauth.Session, req *model.CreateReportRequest) (*model.Report, error) {
	return s.reports.Create(ctx, req, sess.UserID)
}

// ListOptions carries caller-supplied listing parameters; the role scope is
// applied on top of them.
type ListOptions struct {
	Limit     int
	Offset    int
	WeekStart string
}

// List returns the reports visible to the session's role. A manager without a
// durable team assignment is scoped down to their own reports.
func (s *ReportService) List(ctx context.Context, sess domainauth.Session, opts ListOptions) ([]*model.Report, error) {
	storeOpts := model.ReportsListOptions{
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	if opts.WeekStart != "" {
		week, err := time.Parse("2006-01-02", strings.TrimSpace(opts.WeekStart))
		if err != nil {
			return nil, apperrors.ValidationField("week_start", "week start must be a date in YYYY-MM-DD format")
		}
		storeOpts.WeekStart = &week
	}

	switch {
	case sess.Role.AtLeast(domainauth.RoleAdmin):
		// Unscoped.
	case sess.Role.AtLeast(domainauth.RoleManager) && sess.TeamID != "" && sess.TeamPersisted:
		members, err := s.members.ListUserIDsByTeam(ctx, sess.TeamID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list team members")
		}
		if !contains(members, sess.UserID) {
			members = append(members, sess.UserID)
		}
		storeOpts.TeamUserIDs = members
	default:
		userID := sess.UserID
		storeOpts.UserID = &userID
	}

	return s.reports.List(ctx, storeOpts)
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
