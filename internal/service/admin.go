package service

import (
	"context"
	"log/slog"
	"strings"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	apperrors "github.com/pulsehq/pulse-ui-api/internal/errors"
	"github.com/pulsehq/pulse-ui-api/internal/ports"
)

// RoleWriter durably records a user's role. The profile repository satisfies
// this.
type RoleWriter interface {
	SetRole(ctx context.Context, userID, role string) error
}

// AdminServiceOptions groups dependencies for AdminService.
type AdminServiceOptions struct {
	Proxy    ports.BackendProxy
	Profiles RoleWriter
	Logger   *slog.Logger
}

// AdminService covers administrator operations: the user directory and role
// assignment. The directory lives in the backend; role changes are mirrored
// into the local profile store so the resolution pipeline observes them.
type AdminService struct {
	proxy    ports.BackendProxy
	profiles RoleWriter
	logger   *slog.Logger
}

// NewAdminService constructs a new AdminService.
func NewAdminService(opts AdminServiceOptions) *AdminService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		proxy:    opts.Proxy,
		profiles: opts.Profiles,
		logger:   logger,
	}
}

// ListUsers returns the backend's user directory. There is no local fallback
// directory.
func (s *AdminService) ListUsers(ctx context.Context) ([]ports.ProxyUser, error) {
	if s.proxy == nil {
		return nil, apperrors.ConfigMissing("backend service is not configured")
	}
	return s.proxy.ListUsers(ctx)
}

// SetUserRole assigns a role to a user. The raw role is validated against the
// closed role set before any write happens. When a backend is configured the
// change goes there first; the local profile is updated either way.
func (s *AdminService) SetUserRole(ctx context.Context, userID, rawRole string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.ValidationField("user_id", "user ID is required")
	}
	role, ok := domainauth.ParseRole(rawRole)
	if !ok {
		return apperrors.ValidationField("role", "role must be one of admin, manager, employee")
	}

	if s.proxy != nil {
		if err := s.proxy.SetUserRole(ctx, userID, role); err != nil {
			return err
		}
	}
	if s.profiles != nil {
		if err := s.profiles.SetRole(ctx, userID, string(role)); err != nil {
			if s.proxy != nil {
				// The backend accepted the change; the local mirror will catch
				// up on the next resolution that reads from the backend.
				s.logger.WarnContext(ctx, "mirroring role to profile failed", "user_id", userID, "error", err)
				return nil
			}
			return err
		}
	}
	s.logger.InfoContext(ctx, "user role updated", "user_id", userID, "role", role)
	return nil
}
