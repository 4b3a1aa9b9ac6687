package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/domain/model"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityClient = (*ScriptedIdentityClient)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.ProfileStore   = (*MemoryProfileStore)(nil)
	_ ports.TeamCache      = (*MemoryTeamCache)(nil)
	_ ports.ReportStore    = (*MemoryReportStore)(nil)
	_ ports.BackendProxy   = (*StubBackendProxy)(nil)
)

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}

// ScriptedIdentityClient simulates an identity provider for tests. Behavior is
// scripted per call via func fields; unset funcs fall back to returning the
// Current session. The auth-state-change stream is driven by Emit and tracks
// how many times subscriptions were released.
type ScriptedIdentityClient struct {
	GetSessionFunc   func(ctx context.Context) (*domainauth.ProviderSession, error)
	ExchangeCodeFunc func(ctx context.Context, rawURL string) (*domainauth.ProviderSession, error)
	SetSessionFunc   func(ctx context.Context, tokens ports.TokenPair) (*domainauth.ProviderSession, error)
	SignInOAuthFunc  func(ctx context.Context, in ports.OAuthSignInInput) (string, error)
	SignInOTPFunc    func(ctx context.Context, in ports.OTPSignInInput) error
	SignOutFunc      func(ctx context.Context) error

	// Current is returned by GetSession when GetSessionFunc is unset.
	Current *domainauth.ProviderSession

	mu           sync.Mutex
	subscribers  []chan ports.AuthEvent
	releaseCount int

	// Call counters for asserting which operations ran.
	GetSessionCalls int
	ExchangeCalls   int
	SetSessionCalls int
	SignOutCalls    int
	SubscribeCalls  int
	countMu         sync.Mutex
}

// NewScriptedIdentityClient creates an identity client double with no session.
func NewScriptedIdentityClient() *ScriptedIdentityClient {
	return &ScriptedIdentityClient{}
}

func (c *ScriptedIdentityClient) GetSession(ctx context.Context) (*domainauth.ProviderSession, error) {
	c.countMu.Lock()
	c.GetSessionCalls++
	c.countMu.Unlock()
	if c.GetSessionFunc != nil {
		return c.GetSessionFunc(ctx)
	}
	return c.Current, nil
}

func (c *ScriptedIdentityClient) SignInWithOAuth(ctx context.Context, in ports.OAuthSignInInput) (string, error) {
	if c.SignInOAuthFunc != nil {
		return c.SignInOAuthFunc(ctx, in)
	}
	return "https://mock-idp/authorize?provider=" + in.Provider, nil
}

func (c *ScriptedIdentityClient) SignInWithOTP(ctx context.Context, in ports.OTPSignInInput) error {
	if c.SignInOTPFunc != nil {
		return c.SignInOTPFunc(ctx, in)
	}
	return nil
}

func (c *ScriptedIdentityClient) ExchangeCode(ctx context.Context, rawURL string) (*domainauth.ProviderSession, error) {
	c.countMu.Lock()
	c.ExchangeCalls++
	c.countMu.Unlock()
	if c.ExchangeCodeFunc != nil {
		return c.ExchangeCodeFunc(ctx, rawURL)
	}
	return c.Current, nil
}

func (c *ScriptedIdentityClient) SetSession(ctx context.Context, tokens ports.TokenPair) (*domainauth.ProviderSession, error) {
	c.countMu.Lock()
	c.SetSessionCalls++
	c.countMu.Unlock()
	if c.SetSessionFunc != nil {
		return c.SetSessionFunc(ctx, tokens)
	}
	return c.Current, nil
}

func (c *ScriptedIdentityClient) AuthStateChanges() (<-chan ports.AuthEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SubscribeCalls++

	ch := make(chan ports.AuthEvent, 8)
	c.subscribers = append(c.subscribers, ch)

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.releaseCount++
			for i, sub := range c.subscribers {
				if sub == ch {
					c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}
	return ch, release
}

func (c *ScriptedIdentityClient) SignOut(ctx context.Context) error {
	c.countMu.Lock()
	c.SignOutCalls++
	c.countMu.Unlock()
	if c.SignOutFunc != nil {
		return c.SignOutFunc(ctx)
	}
	c.Current = nil
	c.Emit(ports.AuthEvent{Type: ports.AuthEventSignedOut})
	return nil
}

// Emit delivers an auth-state event to all live subscribers.
func (c *ScriptedIdentityClient) Emit(ev ports.AuthEvent) {
	c.mu.Lock()
	subs := append([]chan ports.AuthEvent(nil), c.subscribers...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub <- ev
	}
}

// CloseSubscribers ends every live subscription stream without counting a
// release, simulating the provider tearing down the stream.
func (c *ScriptedIdentityClient) CloseSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subscribers {
		close(sub)
	}
	c.subscribers = nil
}

// ReleaseCount reports how many subscription releases have happened.
func (c *ScriptedIdentityClient) ReleaseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseCount
}

// SubscriberCount reports how many subscriptions are currently live.
func (c *ScriptedIdentityClient) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// MemorySessionStore is an in-memory server session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MemoryProfileStore serves profiles from a map, or fails every lookup with
// Err when set (simulating an RLS denial or unreachable store).
type MemoryProfileStore struct {
	Profiles map[string]*model.Profile
	Err      error
}

func (m *MemoryProfileStore) GetByUserID(_ context.Context, userID string) (*model.Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Profiles[userID]
	if !ok {
		// The real repository maps a miss through the error taxonomy.
		return nil, apperrors.NotFound("profile")
	}
	return p, nil
}

// MemoryTeamCache is an in-memory non-durable team selection cache.
type MemoryTeamCache struct {
	mu    sync.Mutex
	teams map[string]domainauth.Team
	Err   error
}

// NewMemoryTeamCache creates an empty team cache.
func NewMemoryTeamCache() *MemoryTeamCache {
	return &MemoryTeamCache{teams: make(map[string]domainauth.Team)}
}

func (m *MemoryTeamCache) Get(_ context.Context, userID string) (*domainauth.Team, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[userID]
	if !ok {
		return nil, nil
	}
	return &team, nil
}

func (m *MemoryTeamCache) Set(_ context.Context, userID string, team domainauth.Team) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[userID] = team
	return nil
}

func (m *MemoryTeamCache) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teams, userID)
	return nil
}

// Len reports how many cached selections are held.
func (m *MemoryTeamCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.teams)
}

// MemoryReportStore is an in-memory report store for unit tests.
type MemoryReportStore struct {
	mu      sync.Mutex
	reports []*model.Report
	nextID  int
	Err     error
}

func (m *MemoryReportStore) Create(_ context.Context, req *model.CreateReportRequest, userID string) (*model.Report, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	ws, err := req.ParseWeekStart()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	uid := userID
	report := &model.Report{
		ID:        "report-" + itoa(m.nextID),
		WeekStart: ws,
		Progress:  req.Progress,
		Blockers:  req.Blockers,
		Plans:     req.Plans,
		UserID:    &uid,
		Tags:      req.Tags,
	}
	m.reports = append(m.reports, report)
	return report, nil
}

func (m *MemoryReportStore) List(_ context.Context, opts model.ReportsListOptions) ([]*model.Report, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Report
	for _, r := range m.reports {
		if opts.UserID != nil && (r.UserID == nil || *r.UserID != *opts.UserID) {
			continue
		}
		if opts.TeamUserIDs != nil && !containsOwner(opts.TeamUserIDs, r.UserID) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func containsOwner(ids []string, owner *string) bool {
	if owner == nil {
		return false
	}
	for _, id := range ids {
		if id == *owner {
			return true
		}
	}
	return false
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// StubBackendProxy scripts backend proxy behavior per call.
type StubBackendProxy struct {
	ListUsersFunc     func(ctx context.Context) ([]ports.ProxyUser, error)
	SetUserRoleFunc   func(ctx context.Context, userID string, role domainauth.Role) error
	ListTeamsFunc     func(ctx context.Context) ([]domainauth.Team, error)
	CreateTeamFunc    func(ctx context.Context, name string) (*domainauth.Team, error)
	SummarizeTeamFunc func(ctx context.Context, teamID string) (string, error)
	SwitchTeamFunc    func(ctx context.Context, userID, teamID string) error
}

func (s *StubBackendProxy) ListUsers(ctx context.Context) ([]ports.ProxyUser, error) {
	if s.ListUsersFunc != nil {
		return s.ListUsersFunc(ctx)
	}
	return nil, nil
}

func (s *StubBackendProxy) SetUserRole(ctx context.Context, userID string, role domainauth.Role) error {
	if s.SetUserRoleFunc != nil {
		return s.SetUserRoleFunc(ctx, userID, role)
	}
	return nil
}

func (s *StubBackendProxy) ListTeams(ctx context.Context) ([]domainauth.Team, error) {
	if s.ListTeamsFunc != nil {
		return s.ListTeamsFunc(ctx)
	}
	return nil, nil
}

func (s *StubBackendProxy) CreateTeam(ctx context.Context, name string) (*domainauth.Team, error) {
	if s.CreateTeamFunc != nil {
		return s.CreateTeamFunc(ctx, name)
	}
	return &domainauth.Team{ID: "team-1", Name: name}, nil
}

func (s *StubBackendProxy) SummarizeTeam(ctx context.Context, teamID string) (string, error) {
	if s.SummarizeTeamFunc != nil {
		return s.SummarizeTeamFunc(ctx, teamID)
	}
	return "", nil
}

func (s *StubBackendProxy) SwitchTeam(ctx context.Context, userID, teamID string) error {
	if s.SwitchTeamFunc != nil {
		return s.SwitchTeamFunc(ctx, userID, teamID)
	}
	return nil
}
