package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/dicri-gt/dicri-backend/internal/auth"
	"github.com/dicri-gt/dicri-backend/internal/database/testutil"
	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
)

func TestRequireAnyPermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	var admin models.User
	require.NoError(t, db.Preload("Roles").Where("username = ?", "admin").First(&admin).Error)

	var tecnicoRole models.Role
	require.NoError(t, db.Where("key = ?", "tecnico").First(&tecnicoRole).Error)
	tecnico := models.User{
		Username:     "tecnico1",
		PasswordHash: "x",
		IsActive:     true,
		Roles:        []models.Role{tecnicoRole},
	}
	require.NoError(t, db.Create(&tecnico).Error)

	tokens := newTokenService(t)
	adminToken, err := tokens.GenerateAccessToken(iauth.TokenInput{
		UserID:   admin.ID,
		Username: admin.Username,
		Roles:    admin.RoleKeys(),
	})
	require.NoError(t, err)
	tecnicoToken, err := tokens.GenerateAccessToken(iauth.TokenInput{
		UserID:   tecnico.ID,
		Username: tecnico.Username,
		Roles:    []string{"tecnico"},
	})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/users", Auth(tokens), RequireAnyPermission(checker, "users.write"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The técnico role never carries user administration grants.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+tecnicoToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	var payload struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, "INSUFFICIENT_PERMISSION", payload.Error.Code)
	require.Equal(t, []any{"users.write"}, payload.Error.Details["required"])
}
