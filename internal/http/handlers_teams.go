package httpx

import (
	"context"
	"net/http"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
)

// TeamServiceInterface defines the interface for team operations.
type TeamServiceInterface interface {
	List(ctx context.Context) ([]domainauth.Team, error)
	Create(ctx context.Context, name string) (*domainauth.Team, error)
	Summarize(ctx context.Context, teamID string) (string, error)
	Switch(ctx context.Context, userID, teamID string) (*domainauth.Team, bool, error)
}

// TeamHandlers provides HTTP handlers for teams and team selection.
type TeamHandlers struct {
	Svc TeamServiceInterface
}

// List returns all teams.
// GET /api/teams.
func (h *TeamHandlers) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Svc.List(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if teams == nil {
		teams = []domainauth.Team{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

// createTeamRequest is the team creation body. Only the name is accepted;
// the backend owns ID generation.
type createTeamRequest struct {
	Name string `json:"name"`
}

// Create registers a new team.
// POST /api/teams.
func (h *TeamHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	team, err := h.Svc.Create(r.Context(), req.Name)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, team)
}

// Summarize produces a summary of a team's recent reports.
// POST /api/teams/{id}/summarize.
func (h *TeamHandlers) Summarize(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.Summarize(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// switchTeamRequest is the team switch body.
type switchTeamRequest struct {
	TeamID string `json:"team_id"`
}

// Switch moves the caller onto a team.
// POST /api/teams/switch.
func (h *TeamHandlers) Switch(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req switchTeamRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	team, durable, err := h.Svc.Switch(r.Context(), session.UserID, req.TeamID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"team":      team,
		"persisted": durable,
	})
}
