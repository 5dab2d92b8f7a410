package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/menu-planner/internal/auth"
	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/repository/sqlstore"
	"github.com/sakif/menu-planner/internal/service"
)

const testClientURL = "http://localhost:5173"

// fakeProvider stands in for Google. Exchange succeeds only for "good-code".
type fakeProvider struct {
	profile *auth.GoogleUser
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*auth.GoogleUser, error) {
	if code != "good-code" {
		return nil, errors.New("invalid_grant")
	}
	return f.profile, nil
}

type authFixture struct {
	handler *AuthHandler
	tokens  *auth.TokenService
	store   *sqlstore.DB
}

func newAuthFixture(t *testing.T, provider OAuthProvider) *authFixture {
	t.Helper()
	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 2*time.Hour)
	require.NoError(t, err)

	svc := service.NewAuthService(store, tokens, newTestLogger())
	h := NewAuthHandler(provider, svc, SessionConfig{
		TTL:       tokens.TTL(),
		ClientURL: testClientURL + "/",
	}, newTestLogger())
	return &authFixture{handler: h, tokens: tokens, store: store}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callbackRequest(state, cookieState, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state="+state+"&"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: cookieState})
	}
	return req
}

// =========================================================================
// LOGIN
// =========================================================================

func TestHandleGoogleLogin(t *testing.T) {
	f := newAuthFixture(t, &fakeProvider{})

	rec := httptest.NewRecorder()
	f.handler.HandleGoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	state := findCookie(rec, stateCookieName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Len(t, state.Value, 36, "state is a UUID")
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "state="+state.Value))
}

func TestHandleGoogleLogin_NotConfigured(t *testing.T) {
	f := newAuthFixture(t, nil)

	for _, h := range []http.HandlerFunc{f.handler.HandleGoogleLogin, f.handler.HandleGoogleCallback} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
}

// =========================================================================
// CALLBACK
// =========================================================================

func TestHandleGoogleCallback_Success(t *testing.T) {
	f := newAuthFixture(t, &fakeProvider{profile: &auth.GoogleUser{
		ID:    "g-priya",
		Email: "priya@example.com",
		Name:  "Priya",
	}})

	rec := httptest.NewRecorder()
	f.handler.HandleGoogleCallback(rec, callbackRequest("s1", "s1", "code=good-code"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, testClientURL+"/", rec.Header().Get("Location"))

	session := findCookie(rec, auth.CookieName)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, int((2 * time.Hour).Seconds()), session.MaxAge)

	userID, err := f.tokens.Validate(session.Value)
	require.NoError(t, err)
	user, err := f.store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Priya", user.Name)
	assert.True(t, user.HasActiveGroup())

	cleared := findCookie(rec, stateCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0, "state cookie is single-use")
}

func TestHandleGoogleCallback_Failures(t *testing.T) {
	f := newAuthFixture(t, &fakeProvider{profile: &auth.GoogleUser{ID: "g-1", Email: "a@example.com"}})

	t.Run("state mismatch", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.HandleGoogleCallback(rec, callbackRequest("s1", "other", "code=good-code"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, findCookie(rec, auth.CookieName))
	})

	t.Run("missing state cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.HandleGoogleCallback(rec, callbackRequest("s1", "", "code=good-code"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	redirects := []struct {
		name  string
		query string
	}{
		{"user denied", "error=access_denied"},
		{"missing code", ""},
		{"exchange fails", "code=bad-code"},
	}
	for _, tt := range redirects {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.HandleGoogleCallback(rec, callbackRequest("s1", "s1", tt.query))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, testClientURL+"/login?auth=failed", rec.Header().Get("Location"))
			assert.Nil(t, findCookie(rec, auth.CookieName))
		})
	}

	t.Run("profile without id", func(t *testing.T) {
		g := newAuthFixture(t, &fakeProvider{profile: &auth.GoogleUser{Email: "noid@example.com"}})
		rec := httptest.NewRecorder()
		g.handler.HandleGoogleCallback(rec, callbackRequest("s1", "s1", "code=good-code"))
		assert.Equal(t, testClientURL+"/login?auth=failed", rec.Header().Get("Location"))
	})
}

// =========================================================================
// SESSION
// =========================================================================

func TestHandleMeAndPreferences(t *testing.T) {
	f := newAuthFixture(t, &fakeProvider{})
	user := &model.User{GoogleID: "g-1", Email: "a@example.com", Name: "Ada"}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	ctx := auth.WithUserID(context.Background(), user.ID)

	rec := httptest.NewRecorder()
	f.handler.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil).WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var me model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Ada", me.Name)
	assert.Equal(t, model.ThemeSystem, me.ThemePreference)
	assert.NotContains(t, rec.Body.String(), "g-1", "the Google id is not exposed")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/auth/preferences", strings.NewReader(`{"theme_preference":"dark"}`))
	f.handler.HandlePreferences(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, model.ThemeDark, me.ThemePreference)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/auth/preferences", strings.NewReader(`{"theme_preference":"neon"}`))
	f.handler.HandlePreferences(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "theme", decodeError(t, rec).Field)
}

func TestHandleMe_Anonymous(t *testing.T) {
	f := newAuthFixture(t, &fakeProvider{})

	rec := httptest.NewRecorder()
	f.handler.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
}

func TestHandleLogout(t *testing.T) {
	f := newAuthFixture(t, &fakeProvider{})

	rec := httptest.NewRecorder()
	f.handler.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	session := findCookie(rec, auth.CookieName)
	require.NotNil(t, session)
	assert.Empty(t, session.Value)
	assert.Less(t, session.MaxAge, 0)
}
