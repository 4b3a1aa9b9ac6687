package backendproxy

// Package backendproxy is a REST client for the optional backend service that
// owns user administration, teams, and report summarization. The whole
// adapter is optional: when no base URL is configured the services run
// without it and fall back to local behavior.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// DefaultSummaryExpr extracts the summary text from the backend's
// summarize response.
const DefaultSummaryExpr = "summary"

// Config captures the subset of backend behaviour we need.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	SummaryExpr string // JMESPath into the summarize response, default "summary"
	Client      *http.Client
}

// Client talks to the backend service. It implements ports.BackendProxy.
type Client struct {
	baseURL     string
	apiKey      string
	summaryExpr string
	client      *http.Client
}

var _ ports.BackendProxy = (*Client)(nil)

// NewClient builds a backend proxy client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	expr := strings.TrimSpace(cfg.SummaryExpr)
	if expr == "" {
		expr = DefaultSummaryExpr
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid summary expression %q: %w", expr, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		summaryExpr: expr,
		client:      hc,
	}, nil
}

type proxyUserPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type teamPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListUsers fetches all users known to the backend.
func (c *Client) ListUsers(ctx context.Context) ([]ports.ProxyUser, error) {
	var payload []proxyUserPayload
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &payload); err != nil {
		return nil, err
	}

	users := make([]ports.ProxyUser, 0, len(payload))
	for _, p := range payload {
		role, ok := domainauth.ParseRole(p.Role)
		if !ok {
			role = domainauth.RoleEmployee
		}
		users = append(users, ports.ProxyUser{ID: p.ID, Email: p.Email, Role: string(role)})
	}
	return users, nil
}

// SetUserRole updates a user's role on the backend.
func (c *Client) SetUserRole(ctx context.Context, userID string, role domainauth.Role) error {
	if userID == "" {
		return apperrors.Validation("user ID is required")
	}
	body := map[string]string{"user_id": userID, "role": string(role)}
	return c.do(ctx, http.MethodPost, "/admin/users/role", body, nil)
}

// ListTeams fetches all teams.
func (c *Client) ListTeams(ctx context.Context) ([]domainauth.Team, error) {
	var payload []teamPayload
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &payload); err != nil {
		return nil, err
	}

	teams := make([]domainauth.Team, 0, len(payload))
	for _, p := range payload {
		teams = append(teams, domainauth.Team{ID: p.ID, Name: p.Name})
	}
	return teams, nil
}

// CreateTeam creates a team by name. The backend owns ID assignment.
func (c *Client) CreateTeam(ctx context.Context, name string) (*domainauth.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("team name is required")
	}

	var payload teamPayload
	if err := c.do(ctx, http.MethodPost, "/teams", map[string]string{"name": name}, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" {
		return nil, apperrors.Internal("backend returned a team without an ID")
	}
	return &domainauth.Team{ID: payload.ID, Name: payload.Name}, nil
}

// SummarizeTeam asks the backend to summarize a team's recent reports and
// extracts the text with the configured JMESPath expression.
func (c *Client) SummarizeTeam(ctx context.Context, teamID string) (string, error) {
	if teamID == "" {
		return "", apperrors.Validation("team ID is required")
	}

	var payload any
	if err := c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/summarize", nil, &payload); err != nil {
		return "", err
	}

	value, err := jmespath.Search(c.summaryExpr, payload)
	if err != nil {
		return "", fmt.Errorf("evaluate summary expression: %w", err)
	}
	summary, ok := value.(string)
	if !ok || summary == "" {
		return "", apperrors.Internal("backend summarize response had no summary text")
	}
	return summary, nil
}

// SwitchTeam durably moves a user to a team. The backend keys the change on
// the authenticated caller, so the user ID travels in the body.
func (c *Client) SwitchTeam(ctx context.Context, userID, teamID string) error {
	if userID == "" || teamID == "" {
		return apperrors.Validation("user ID and team ID are required")
	}
	body := map[string]string{"user_id": userID, "team_id": teamID}
	return c.do(ctx, http.MethodPost, "/users/me/team", body, nil)
}

// do sends one request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Network("backend request "+method+" "+path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(data))
	if detail == "" {
		detail = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.AccessDenied("backend denied the request")
	case http.StatusNotFound:
		return apperrors.NotFound("backend resource")
	case http.StatusConflict:
		return apperrors.Conflict(detail)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validation(detail)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return apperrors.Timeout("backend request timed out")
	default:
		return apperrors.Internal(fmt.Sprintf("backend returned %s", resp.Status))
	}
}
