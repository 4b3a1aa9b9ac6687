package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         AuthServiceInterface
	Reports      ReportServiceInterface
	Teams        TeamServiceInterface
	Admin        AdminServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}
	registerAuthRoutes(mux, authHandlers)

	requireAuth := RequireAuth(services.Auth)
	requireManager := RequireRole(services.Auth, domainauth.RoleManager)
	requireAdmin := RequireRole(services.Auth, domainauth.RoleAdmin)

	reportHandlers := &ReportHandlers{Svc: services.Reports}
	mux.Handle("GET /api/reports", requireAuth(http.HandlerFunc(reportHandlers.List)))
	mux.Handle("POST /api/reports", requireAuth(http.HandlerFunc(reportHandlers.Create)))

	teamHandlers := &TeamHandlers{Svc: services.Teams}
	mux.Handle("GET /api/teams", requireAuth(http.HandlerFunc(teamHandlers.List)))
	mux.Handle("POST /api/teams", requireAdmin(http.HandlerFunc(teamHandlers.Create)))
	mux.Handle("POST /api/teams/switch", requireAuth(http.HandlerFunc(teamHandlers.Switch)))
	mux.Handle("POST /api/teams/{id}/summarize", requireManager(http.HandlerFunc(teamHandlers.Summarize)))

	if services.Admin != nil {
		adminHandlers := &AdminHandlers{Svc: services.Admin}
		mux.Handle("GET /api/admin/users", requireAdmin(http.HandlerFunc(adminHandlers.ListUsers)))
		mux.Handle("PUT /api/admin/users/{id}/role", requireAdmin(http.HandlerFunc(adminHandlers.SetUserRole)))
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

// registerAuthRoutes wires the authentication endpoints.
func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("GET /auth/login", http.HandlerFunc(h.Login))
	mux.Handle("POST /auth/otp", http.HandlerFunc(h.OTP))
	mux.Handle("GET /auth/callback", http.HandlerFunc(h.Callback))
	mux.Handle("POST /auth/callback", http.HandlerFunc(h.Callback))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("GET /auth/status", http.HandlerFunc(h.Status))
}
