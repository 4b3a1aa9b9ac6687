package httpx

import (
	"context"
	"net/http"

	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// AdminServiceInterface defines the interface for administrator operations.
type AdminServiceInterface interface {
	ListUsers(ctx context.Context) ([]ports.ProxyUser, error)
	SetUserRole(ctx context.Context, userID, rawRole string) error
}

// AdminHandlers provides HTTP handlers for administrator operations.
type AdminHandlers struct {
	Svc AdminServiceInterface
}

// ListUsers returns the user directory.
// GET /api/admin/users.
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.ListUsers(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if users == nil {
		users = []ports.ProxyUser{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// setRoleRequest is the role assignment body.
type setRoleRequest struct {
	Role string `json:"role"`
}

// SetUserRole assigns a role to a user.
// PUT /api/admin/users/{id}/role.
func (h *AdminHandlers) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.SetUserRole(r.Context(), r.PathValue("id"), req.Role); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
