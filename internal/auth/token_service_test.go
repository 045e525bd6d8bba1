package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewTokenServiceRequiresSecrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{RefreshSecret: "r"})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: access secret must be provided")

	_, err = NewTokenService(TokenConfig{AccessSecret: "a"})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: refresh secret must be provided")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "dicri",
		AccessTTL:     15 * time.Minute,
		Clock:         now,
	})
	require.NoError(t, err)

	roles := []string{"admin", "tecnico"}
	token, err := svc.GenerateAccessToken(TokenInput{UserID: 42, Username: "admin", Roles: roles})
	require.NoError(t, err)

	// The issued token must not share backing storage with the input slice.
	roles[0] = "mutated"

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
	require.Equal(t, "admin", claims.Username)
	require.Equal(t, []string{"admin", "tecnico"}, claims.Roles)
	require.Empty(t, claims.TokenType)
	require.Equal(t, "dicri", claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(15*time.Minute)))
	require.True(t, claims.HasRole("tecnico"))
	require.False(t, claims.HasRole("coordinador"))
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewTokenService(TokenConfig{AccessSecret: "one", RefreshSecret: "two", Clock: now})
	require.NoError(t, err)

	verifier, err := NewTokenService(TokenConfig{AccessSecret: "other", RefreshSecret: "two", Clock: now})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(TokenInput{UserID: 1, Username: "admin"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessTTL:     time.Minute,
		Clock:         now,
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(TokenInput{UserID: 1, Username: "admin"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	require.NoError(t, err)

	token, err := svc.GenerateRefreshToken(TokenInput{UserID: 7, Username: "tecnico1", Roles: []string{"tecnico"}})
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	require.Equal(t, "refresh", claims.TokenType)
	require.Equal(t, "tecnico1", claims.Username)

	// A refresh token must never pass access validation.
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestTypeClaimGuardsSharedSecrets(t *testing.T) {
	// Misconfigured deployment: both families signed with the same secret.
	svc, err := NewTokenService(TokenConfig{AccessSecret: "shared", RefreshSecret: "shared"})
	require.NoError(t, err)

	access, err := svc.GenerateAccessToken(TokenInput{UserID: 9, Username: "admin"})
	require.NoError(t, err)

	// The signature verifies, so only the type claim can reject it.
	_, err = svc.ValidateRefreshToken(access)
	require.Error(t, err)
	require.EqualError(t, err, "jwt: token is not a refresh token")
}
