package httpx

import (
	"context"
	"net/http"
	"strconv"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	"github.com/pulsehq/pulse-ui-api/internal/service"
)

// ReportServiceInterface defines the interface for report operations.
type ReportServiceInterface interface {
	Create(ctx context.Context, sess domainauth.Session, req *model.CreateReportRequest) (*model.Report, error)
	List(ctx context.Context, sess domainauth.Session, opts service.ListOptions) ([]*model.Report, error)
}

// ReportHandlers provides HTTP handlers for weekly reports.
type ReportHandlers struct {
	Svc ReportServiceInterface
}

// List returns the reports visible to the caller's role.
// GET /api/reports?limit=<n>&offset=<n>&week_start=<YYYY-MM-DD>.
func (h *ReportHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	opts := service.ListOptions{
		Limit:     intQuery(r, "limit"),
		Offset:    intQuery(r, "offset"),
		WeekStart: r.URL.Query().Get("week_start"),
	}

	reports, err := h.Svc.List(r.Context(), *session, opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if reports == nil {
		reports = []*model.Report{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// Create stores a new weekly report owned by the caller.
// POST /api/reports.
func (h *ReportHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.CreateReportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	report, err := h.Svc.Create(r.Context(), *session, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, report)
}

// intQuery parses a non-negative integer query parameter, defaulting to zero.
func intQuery(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
