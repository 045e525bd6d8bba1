package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/dicri-gt/dicri-backend/internal/auth"
	"github.com/dicri-gt/dicri-backend/internal/database"
	"github.com/dicri-gt/dicri-backend/internal/database/testutil"
	"github.com/dicri-gt/dicri-backend/internal/handlers"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
)

type authEnv struct {
	router *gin.Engine
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "dicri-test",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	store, err := iauth.NewGormUserStore(db, 0)
	require.NoError(t, err)
	verifier, err := iauth.NewVerifier(store, iauth.VerifierConfig{})
	require.NoError(t, err)

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	handler, err := handlers.NewAuthHandler(handlers.AuthHandlerConfig{
		DB:       db,
		Verifier: verifier,
		Tokens:   tokens,
		Checker:  checker,
	})
	require.NoError(t, err)

	r := gin.New()
	auth := r.Group("/api/v1/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)
	auth.POST("/logout", handler.Logout)
	auth.GET("/me", middleware.Auth(tokens), handler.Me)

	return &authEnv{router: r}
}

func (e *authEnv) request(t *testing.T, method, path string, payload any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == handlers.RefreshCookieName {
			return cookie
		}
	}
	t.Fatal("refresh cookie not set")
	return nil
}

func TestLoginSuccess(t *testing.T) {
	env := newAuthEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": database.DefaultAdminPassword,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	require.True(t, resp.Success)

	var data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		User        struct {
			Username    string   `json:"username"`
			Roles       []string `json:"roles"`
			Permissions []string `json:"permissions"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	require.Equal(t, "Bearer", data.TokenType)
	require.Equal(t, 60, data.ExpiresIn)
	require.Equal(t, "admin", data.User.Username)
	require.Contains(t, data.User.Roles, "admin")
	require.Contains(t, data.User.Permissions, "users.write")

	cookie := refreshCookie(t, w)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, handlers.RefreshCookiePath, cookie.Path)
	require.NotEmpty(t, cookie.Value)
}

func TestLoginLockoutSequence(t *testing.T) {
	env := newAuthEnv(t)

	bad := gin.H{"username": "admin", "password": "incorrecta"}

	for _, expected := range []float64{2, 1} {
		w := env.request(t, http.MethodPost, "/api/v1/auth/login", bad, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)

		resp := decode(t, w)
		require.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
		require.Equal(t, expected, resp.Error.Details["remaining_attempts"])
	}

	// The third failure trips the lock but still reads as a generic 401,
	// now carrying the lockout timestamp.
	w := env.request(t, http.MethodPost, "/api/v1/auth/login", bad, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decode(t, w)
	require.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
	require.Equal(t, float64(0), resp.Error.Details["remaining_attempts"])
	require.NotEmpty(t, resp.Error.Details["locked_until"])

	// Correct credentials make no difference while the window is active.
	w = env.request(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": database.DefaultAdminPassword,
	}, "")
	require.Equal(t, http.StatusLocked, w.Code)
	resp = decode(t, w)
	require.Equal(t, "ACCOUNT_LOCKED", resp.Error.Code)
	require.NotEmpty(t, resp.Error.Details["locked_until"])
}

func TestRefreshRotatesTokens(t *testing.T) {
	env := newAuthEnv(t)

	login := env.request(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": database.DefaultAdminPassword,
	}, "")
	require.Equal(t, http.StatusOK, login.Code)
	cookie := refreshCookie(t, login)

	w := env.request(t, http.MethodPost, "/api/v1/auth/refresh", nil, "", cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.AccessToken)

	rotated := refreshCookie(t, w)
	require.NotEmpty(t, rotated.Value)

	// The new access token works against a protected endpoint.
	me := env.request(t, http.MethodGet, "/api/v1/auth/me", nil, data.AccessToken)
	require.Equal(t, http.StatusOK, me.Code)
}

func TestRefreshRequiresCookie(t *testing.T) {
	env := newAuthEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/auth/refresh", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "TOKEN_INVALID", decode(t, w).Error.Code)
}

func TestAccessTokenRejectedAsRefreshCookie(t *testing.T) {
	env := newAuthEnv(t)

	login := env.request(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": database.DefaultAdminPassword,
	}, "")
	require.Equal(t, http.StatusOK, login.Code)

	resp := decode(t, login)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	forged := &http.Cookie{Name: handlers.RefreshCookieName, Value: data.AccessToken}
	w := env.request(t, http.MethodPost, "/api/v1/auth/refresh", nil, "", forged)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newAuthEnv(t)

	login := env.request(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin",
		"password": database.DefaultAdminPassword,
	}, "")
	require.Equal(t, http.StatusOK, login.Code)

	resp := decode(t, login)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	w := env.request(t, http.MethodPost, "/api/v1/auth/logout", nil, data.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	cleared := refreshCookie(t, w)
	require.Empty(t, cleared.Value)
	require.Less(t, cleared.MaxAge, 0)
}

func TestLogoutWithoutTokenStillClearsCookie(t *testing.T) {
	env := newAuthEnv(t)

	// The common logout case: the access token already expired, so the
	// request carries nothing but the cookie to get rid of.
	w := env.request(t, http.MethodPost, "/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	cleared := refreshCookie(t, w)
	require.Empty(t, cleared.Value)
	require.Less(t, cleared.MaxAge, 0)
}
