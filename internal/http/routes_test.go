package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

func TestHealthz(t *testing.T) {
	f := newRouterFixture()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReports_RequireAuth(t *testing.T) {
	f := newRouterFixture()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/reports", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReports_ListPassesSessionAndOptions(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleEmployee)
	uid := "user-employee"
	f.reports.reports = []*model.Report{{ID: "r1", Progress: "p", Plans: "p", UserID: &uid}}

	req := httptest.NewRequest(http.MethodGet, "/api/reports?limit=5&offset=10&week_start=2026-08-24", nil)
	rec := f.do(req, id)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-employee", f.reports.lastSess.UserID)
	assert.Equal(t, 5, f.reports.lastOpts.Limit)
	assert.Equal(t, 10, f.reports.lastOpts.Offset)
	assert.Equal(t, "2026-08-24", f.reports.lastOpts.WeekStart)
}

func TestReports_ListEmptyIsJSONArray(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleEmployee)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/reports", nil), id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}

func TestReports_Create(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleEmployee)

	body := strings.NewReader(`{"week_start":"2026-08-24","progress":"done","plans":"more"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	rec := f.do(req, id)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, f.reports.created)
	assert.Equal(t, "done", f.reports.created.Progress)
}

func TestReports_CreateValidationError(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleEmployee)
	f.reports.err = apperrors.Validation("progress is required")

	body := strings.NewReader(`{"week_start":"2026-08-24","plans":"more"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/reports", body), id)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTeams_ListForAnyAuthenticatedRole(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleEmployee)
	f.teams.teams = []domainauth.Team{{ID: "t1", Name: "Platform"}}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/teams", nil), id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Platform")
}

func TestTeams_CreateRequiresAdmin(t *testing.T) {
	f := newRouterFixture()
	employee := f.auth.seedSession(domainauth.RoleEmployee)
	manager := f.auth.seedSession(domainauth.RoleManager)
	admin := f.auth.seedSession(domainauth.RoleAdmin)

	for _, tc := range []struct {
		name      string
		sessionID string
		want      int
	}{
		{"employee forbidden", employee, http.StatusForbidden},
		{"manager forbidden", manager, http.StatusForbidden},
		{"admin allowed", admin, http.StatusCreated},
		{"anonymous unauthorized", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			body := strings.NewReader(`{"name":"Data"}`)
			rec := f.do(httptest.NewRequest(http.MethodPost, "/api/teams", body), tc.sessionID)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestTeams_SummarizeRequiresManager(t *testing.T) {
	f := newRouterFixture()
	f.teams.summary = "the team shipped"
	employee := f.auth.seedSession(domainauth.RoleEmployee)
	manager := f.auth.seedSession(domainauth.RoleManager)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/teams/t1/summarize", nil), employee)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/teams/t1/summarize", nil), manager)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":"the team shipped"}`, rec.Body.String())
}

func TestTeams_SummarizeWithoutBackend(t *testing.T) {
	f := newRouterFixture()
	f.teams.err = apperrors.ConfigMissing("backend service is not configured")
	manager := f.auth.seedSession(domainauth.RoleManager)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/teams/t1/summarize", nil), manager)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestTeams_Switch(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleEmployee)

	body := strings.NewReader(`{"team_id":"t2"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/teams/switch", body), id)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user-employee:t2"}, f.teams.switched)

	var resp struct {
		Persisted bool `json:"persisted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Persisted)
}

func TestAdmin_UsersRequiresAdmin(t *testing.T) {
	f := newRouterFixture()
	f.admin.users = []ports.ProxyUser{{ID: "u1", Email: "a@example.com", Role: "employee"}}
	manager := f.auth.seedSession(domainauth.RoleManager)
	admin := f.auth.seedSession(domainauth.RoleAdmin)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/admin/users", nil), manager)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/admin/users", nil), admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@example.com")
}

func TestAdmin_SetUserRole(t *testing.T) {
	f := newRouterFixture()
	admin := f.auth.seedSession(domainauth.RoleAdmin)

	body := strings.NewReader(`{"role":"manager"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/u7/role", body)
	rec := f.do(req, admin)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manager", f.admin.setRoles["u7"])
}

func TestAdmin_SetUserRoleInvalid(t *testing.T) {
	f := newRouterFixture()
	f.admin.err = apperrors.ValidationField("role", "role must be one of admin, manager, employee")
	admin := f.auth.seedSession(domainauth.RoleAdmin)

	body := strings.NewReader(`{"role":"superuser"}`)
	rec := f.do(httptest.NewRequest(http.MethodPut, "/api/admin/users/u7/role", body), admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	f := newRouterFixture()
	id := f.auth.seedSession(domainauth.RoleAdmin)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader("{not json")), id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
