package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/menu-planner/internal/auth"
	"github.com/sakif/menu-planner/internal/service"
)

const stateCookieName = "oauth_state"

// OAuthProvider is the part of auth.GoogleProvider the login flow needs.
// Tests swap in a fake so no request leaves the process.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

// SessionConfig controls the session cookie and where the browser lands
// after login.
type SessionConfig struct {
	TTL          time.Duration
	CookieSecure bool
	ClientURL    string
}

// AuthHandler manages the Google OAuth login flow and the session cookie.
//
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → exchange the code, resolve the user, set the cookie
//   - HandleMe             → the signed-in user's profile
//   - HandleLogout         → clear the cookie
//   - HandlePreferences    → update the theme preference
type AuthHandler struct {
	provider OAuthProvider
	auth     *service.AuthService
	session  SessionConfig
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. provider may be nil when Google
// credentials are not configured; the login routes then answer 503.
func NewAuthHandler(provider OAuthProvider, authService *service.AuthService, session SessionConfig, logger *slog.Logger) *AuthHandler {
	session.ClientURL = strings.TrimRight(session.ClientURL, "/")
	return &AuthHandler{
		provider: provider,
		auth:     authService,
		session:  session,
		logger:   logger,
	}
}

// HandleGoogleLogin redirects the user to Google.
//
// HTTP: GET /api/auth/google
//
// CSRF PROTECTION VIA STATE:
// A random state value is stored in a short-lived cookie and sent to Google.
// The callback only proceeds when the two match, which proves the flow was
// started from this browser.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "Google sign-in is not configured",
		})
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the login.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a Google profile
//  3. Resolve the profile to a user (creating the user and a default group on first sight)
//  4. Set the session cookie and redirect to the client
//
// Failures after the CSRF check send the browser back to the client's login
// page rather than leaving it on a bare API error.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "Google sign-in is not configured",
		})
		return
	}

	// --- Step 1: validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid OAuth state",
		})
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.redirectFailed(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("auth callback: missing code")
		h.redirectFailed(w, r)
		return
	}

	// --- Step 2: exchange code for a Google profile ---
	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		h.redirectFailed(w, r)
		return
	}

	// --- Step 3: resolve the user ---
	result, err := h.auth.LoginWithGoogle(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: sign in failed",
			slog.String("googleID", profile.ID),
			slog.String("error", err.Error()),
		)
		h.redirectFailed(w, r)
		return
	}

	h.logger.Info("user authenticated",
		slog.String("userID", result.User.ID),
		slog.String("email", result.User.Email),
	)

	// --- Step 4: session cookie + redirect ---
	h.setSessionCookie(w, result.Token, int(h.session.TTL.Seconds()))
	http.Redirect(w, r, h.session.ClientURL+"/", http.StatusSeeOther)
}

func (h *AuthHandler) redirectFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.session.ClientURL+"/login?auth=failed", http.StatusSeeOther)
}

// setSessionCookie writes the JWT as an HttpOnly cookie. A negative maxAge
// deletes it.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Sessions are stateless JWTs, so logging out only removes the cookie. The
// token itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type preferencesRequest struct {
	ThemePreference string `json:"theme_preference"`
}

// HandlePreferences updates the theme preference.
//
// HTTP: PATCH /api/auth/preferences
// REQUEST BODY: {"theme_preference": "dark"}
func (h *AuthHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req preferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.UpdateThemePreference(r.Context(), userID, req.ThemePreference)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
