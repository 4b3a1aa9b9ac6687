package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulsehq/pulse-ui-api/internal/authflow"
	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
	"github.com/pulsehq/pulse-ui-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginOAuth(ctx context.Context, provider, redirectURL string) (string, error)
	BeginOTP(ctx context.Context, email, redirectURL string) error
	CompleteLogin(ctx context.Context, rawURL string) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login begins an OAuth flow and redirects to the identity provider.
// GET /auth/login?provider=<provider>&redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	provider := r.URL.Query().Get("provider")

	authURL, err := h.Svc.BeginOAuth(r.Context(), provider, redirectURI)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// otpRequest is the magic-link request body.
type otpRequest struct {
	Email       string `json:"email"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// OTP sends a magic-link sign-in email.
// POST /auth/otp.
func (h *AuthHandlers) OTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.BeginOTP(r.Context(), req.Email, safeRedirectPath(req.RedirectURI)); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// callbackRequest carries the full callback location from a client that saw
// tokens in the URL fragment, which never reaches the server on a plain GET.
type callbackRequest struct {
	URL string `json:"url"`
}

// callbackResponse reports the terminal state of a sign-in completion run.
type callbackResponse struct {
	State       string `json:"state"`
	RedirectTo  string `json:"redirect_to,omitempty"`
	CleanURL    string `json:"clean_url,omitempty"`
	Error       string `json:"error,omitempty"`
	ExchangeErr string `json:"exchange_error,omitempty"`
}

// Callback completes sign-in from the OAuth callback location.
// GET /auth/callback runs on the request URL and redirects on success;
// POST /auth/callback accepts the full client-side location (including any
// fragment) and responds with JSON.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.String()
	isJSON := r.Method == http.MethodPost
	if isJSON {
		var req callbackRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		rawURL = req.URL
	}

	result, err := h.Svc.CompleteLogin(r.Context(), rawURL)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	flow := result.Flow
	if flow.Confirmed() {
		h.setSessionCookie(w, r, result.Session)
		target := safeRedirectPath(flow.RedirectTarget)
		if isJSON {
			WriteJSON(w, http.StatusOK, callbackResponse{
				State:      string(flow.State),
				RedirectTo: target,
				CleanURL:   flow.CleanURL,
			})
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	resp := callbackResponse{
		State:    string(flow.State),
		CleanURL: flow.CleanURL,
	}
	if flow.Err != nil {
		resp.Error = flow.Err.Error()
	}
	if flow.SoftErr != nil {
		resp.ExchangeErr = flow.SoftErr.Error()
	}
	WriteJSON(w, flowStatus(flow.State), resp)
}

// flowStatus maps a terminal sign-in state onto an HTTP status.
func flowStatus(state authflow.State) int {
	switch state {
	case authflow.StateDenied:
		return http.StatusForbidden
	case authflow.StateTimedOut:
		return http.StatusGatewayTimeout
	case authflow.StateConfigMissing:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Logout invalidates the server-side session and clears the cookie.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if sessionCookie, err := r.Cookie(SessionCookieName); err == nil {
		sessionID = sessionCookie.Value
	}
	if err := h.Svc.Logout(r.Context(), sessionID); err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}

	h.clearCookie(w, r, SessionCookieName)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		// Session is invalid or expired, clear the cookie.
		h.clearCookie(w, r, SessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":    session.UserID,
			"email": session.Email,
			"role":  session.Role,
		},
		"team":           session.Team(),
		"team_persisted": session.TeamPersisted,
		"expires_at":     session.ExpiresAt,
	})
}

// safeRedirectPath allows only relative paths (no scheme/host) starting with "/".
func safeRedirectPath(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return raw
}

// setSessionCookie stores the session ID in a secure HTTP-only cookie.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, session *domainauth.Session) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		Expires:  session.ExpiresAt,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
