package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
	"github.com/pulsehq/pulse-ui-api/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAuthService implements AuthServiceInterface against an in-memory
// session map.
type fakeAuthService struct {
	sessions     map[string]*domainauth.Session
	beginURL     string
	beginErr     error
	complete     *service.CompleteLoginResult
	completeErr  error
	loggedOut    []string
	otpEmails    []string
	lastProvider string
}

func newFakeAuthService() *fakeAuthService {
	return &fakeAuthService{
		sessions: make(map[string]*domainauth.Session),
		beginURL: "https://idp.example.com/authorize",
	}
}

func (f *fakeAuthService) BeginOAuth(_ context.Context, provider, _ string) (string, error) {
	f.lastProvider = provider
	return f.beginURL, f.beginErr
}

func (f *fakeAuthService) BeginOTP(_ context.Context, email, _ string) error {
	f.otpEmails = append(f.otpEmails, email)
	return nil
}

func (f *fakeAuthService) CompleteLogin(_ context.Context, _ string) (*service.CompleteLoginResult, error) {
	return f.complete, f.completeErr
}

func (f *fakeAuthService) GetSession(_ context.Context, sessionID string) (*domainauth.Session, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("session")
	}
	return sess, nil
}

func (f *fakeAuthService) Logout(_ context.Context, sessionID string) error {
	f.loggedOut = append(f.loggedOut, sessionID)
	delete(f.sessions, sessionID)
	return nil
}

// seedSession registers a session and returns its ID for cookie use.
func (f *fakeAuthService) seedSession(role domainauth.Role) string {
	id := "sess-" + string(role)
	f.sessions[id] = &domainauth.Session{
		ID:        id,
		UserID:    "user-" + string(role),
		Email:     string(role) + "@example.com",
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return id
}

// fakeReportService records calls and returns canned reports.
type fakeReportService struct {
	reports  []*model.Report
	err      error
	lastSess domainauth.Session
	lastOpts service.ListOptions
	created  *model.CreateReportRequest
}

func (f *fakeReportService) Create(_ context.Context, sess domainauth.Session, req *model.CreateReportRequest) (*model.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastSess = sess
	f.created = req
	uid := sess.UserID
	return &model.Report{ID: "report-1", Progress: req.Progress, Plans: req.Plans, UserID: &uid}, nil
}

func (f *fakeReportService) List(_ context.Context, sess domainauth.Session, opts service.ListOptions) ([]*model.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastSess = sess
	f.lastOpts = opts
	return f.reports, nil
}

// fakeTeamService returns canned teams.
type fakeTeamService struct {
	teams    []domainauth.Team
	summary  string
	err      error
	switched []string
}

func (f *fakeTeamService) List(context.Context) ([]domainauth.Team, error) {
	return f.teams, f.err
}

func (f *fakeTeamService) Create(_ context.Context, name string) (*domainauth.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domainauth.Team{ID: "team-1", Name: name}, nil
}

func (f *fakeTeamService) Summarize(context.Context, string) (string, error) {
	return f.summary, f.err
}

func (f *fakeTeamService) Switch(_ context.Context, userID, teamID string) (*domainauth.Team, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	f.switched = append(f.switched, userID+":"+teamID)
	return &domainauth.Team{ID: teamID, Name: "Team"}, true, nil
}

// fakeAdminService returns canned users.
type fakeAdminService struct {
	users    []ports.ProxyUser
	err      error
	setRoles map[string]string
}

func (f *fakeAdminService) ListUsers(context.Context) ([]ports.ProxyUser, error) {
	return f.users, f.err
}

func (f *fakeAdminService) SetUserRole(_ context.Context, userID, rawRole string) error {
	if f.err != nil {
		return f.err
	}
	if f.setRoles == nil {
		f.setRoles = make(map[string]string)
	}
	f.setRoles[userID] = rawRole
	return nil
}

// routerFixture bundles a router with its fakes.
type routerFixture struct {
	auth    *fakeAuthService
	reports *fakeReportService
	teams   *fakeTeamService
	admin   *fakeAdminService
	handler http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		auth:    newFakeAuthService(),
		reports: &fakeReportService{},
		teams:   &fakeTeamService{},
		admin:   &fakeAdminService{},
	}
	f.handler = NewRouter(RouterServices{
		Auth:    f.auth,
		Reports: f.reports,
		Teams:   f.teams,
		Admin:   f.admin,
	})
	return f
}

// do performs a request against the router, optionally with a session cookie.
func (f *routerFixture) do(req *http.Request, sessionID string) *httptest.ResponseRecorder {
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
