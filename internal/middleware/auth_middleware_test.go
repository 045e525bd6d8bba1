package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/dicri-gt/dicri-backend/internal/auth"
)

func newTokenService(t *testing.T) *iauth.TokenService {
	t.Helper()

	svc, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "test-suite",
		AccessTTL:     time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := newTokenService(t)
	token, err := tokens.GenerateAccessToken(iauth.TokenInput{
		UserID:   42,
		Username: "admin",
		Roles:    []string{"admin"},
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(tokens), func(c *gin.Context) {
		userID, _ := UserIDFromContext(c)
		claims, _ := ClaimsFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID,
			"username": claims.Username,
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.EqualValues(t, 42, payload["user_id"])
	require.Equal(t, "admin", payload["username"])
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := newTokenService(t)
	refresh, err := tokens.GenerateRefreshToken(iauth.TokenInput{UserID: 42, Username: "admin"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := newTokenService(t)
	token, err := tokens.GenerateAccessToken(iauth.TokenInput{
		UserID:   7,
		Username: "tecnico1",
		Roles:    []string{"tecnico"},
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin", Auth(tokens), RequireRoles("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/campo", Auth(tokens), RequireRoles("admin", "tecnico"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/campo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
